package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/rag"
	"github.com/mkraiem/facpark/server/internal/facpark/service"
	"github.com/mkraiem/facpark/server/internal/facpark/store"
	"github.com/mkraiem/facpark/server/internal/facpark/store/memory"
	"github.com/mkraiem/facpark/server/internal/facpark/types"
	"github.com/mkraiem/facpark/server/internal/httpapi"
)

const testPlate = "176 تونس 7413"

// constEmbedder returns the same vector for every text. Retrieval quality
// is covered elsewhere; here it only has to run.
type constEmbedder struct{ vec []float32 }

func (e constEmbedder) Embed(context.Context, string) ([]float32, error) { return e.vec, nil }
func (e constEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.vec
	}
	return out, nil
}
func (e constEmbedder) Dimensions() int   { return len(e.vec) }
func (e constEmbedder) ModelName() string { return "const" }

type testEnv struct {
	ts     *httptest.Server
	facts  *memory.FactStore
	events *memory.AccessEventStore
	index  *memory.IndexStore
}

// newTestServer wires up the full dependency graph with in-memory stores
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, knownGates []string) testEnv {
	t.Helper()

	facts := memory.NewFactStore()
	events := memory.NewAccessEventStore()
	indexStore := memory.NewIndexStore()
	logger := log.New(io.Discard, "", 0)

	alwaysOpen := service.HoursPolicy{
		OpenDays: map[time.Weekday]struct{}{
			time.Sunday: {}, time.Monday: {}, time.Tuesday: {}, time.Wednesday: {},
			time.Thursday: {}, time.Friday: {}, time.Saturday: {},
		},
		OpenHour:  0,
		CloseHour: 24,
	}
	engine := service.NewDecisionEngine(facts, events, alwaysOpen, logger)

	registry := service.NewGateRegistry(memory.NewGateStore(knownGates))
	heartbeatSvc := service.NewGateHeartbeatService(memory.NewGateStatusStore(), registry)

	retrieval := rag.NewEngine(indexStore, constEmbedder{vec: []float32{1, 0}}, rag.RetrieverConfig{}, logger)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Addr:             ":0",
		Decision:         engine,
		HeartbeatService: heartbeatSvc,
		Retrieval:        retrieval,
		Events:           events,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return testEnv{ts: ts, facts: facts, events: events, index: indexStore}
}

func seedStudent(env testEnv) {
	env.facts.PutOwner(store.Owner{ID: 1, FullName: "Étudiant Test", Active: true})
	env.facts.PutVehicle(store.Vehicle{ID: 1, OwnerID: 1, Plate: testPlate})
	env.facts.PutSubscription(store.Subscription{
		ID: 1, OwnerID: 1, Type: "ANNUEL",
		StartDate: time.Now().UTC().AddDate(0, -1, 0),
		EndDate:   time.Now().UTC().AddDate(1, 0, 0),
		Active:    true,
	})
	env.facts.PutSlot(store.SlotAssignment{ID: 1, OwnerID: 1, SlotID: 1, SlotCode: "A-07", Active: true})
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

// ── Access check ─────────────────────────────────────────────────────────────

func TestAccessCheck_Allow(t *testing.T) {
	env := newTestServer(t, nil)
	seedStudent(env)

	resp := postJSON(t, env.ts.URL+"/v1/access/check", `{"plate":"176 7413 تونس","origin":"gate-north"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res types.DecisionResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Decision != types.DecisionAllow {
		t.Fatalf("expected ALLOW, got %s (%s)", res.Decision, res.RefCode)
	}
	if res.SlotCode != "A-07" {
		t.Errorf("expected slot A-07, got %q", res.SlotCode)
	}
	if res.Plate != testPlate {
		t.Errorf("expected canonical plate, got %q", res.Plate)
	}

	if got := env.events.Events(); len(got) != 1 {
		t.Errorf("expected exactly 1 audit event, got %d", len(got))
	}
}

func TestAccessCheck_UnknownPlate_DeniedWith200(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/v1/access/check", `{"plate":"999 تونس 9999"}`)
	defer resp.Body.Close()

	// A deny is a successful evaluation, not an HTTP error.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res types.DecisionResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Decision != types.DecisionDeny || res.RefCode != types.RefPlateNotRegistered {
		t.Errorf("expected DENY/PLATE_NOT_REGISTERED, got %s/%s", res.Decision, res.RefCode)
	}
}

func TestAccessCheck_MissingPlate_400(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/v1/access/check", `{"origin":"gate-north"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAccessCheck_InvalidJSON_400(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/v1/access/check", `not json at all`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ── Gate heartbeat ───────────────────────────────────────────────────────────

func TestGateHeartbeat_Known(t *testing.T) {
	env := newTestServer(t, []string{"gate-north"})

	resp := postJSON(t, env.ts.URL+"/v1/gate/heartbeat", `{"gate_id":"gate-north","uptime_s":42}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var hb types.GateHeartbeatResponse
	if err := json.NewDecoder(resp.Body).Decode(&hb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !hb.OK || !hb.Known || hb.GateID != "gate-north" {
		t.Errorf("unexpected response %+v", hb)
	}
}

func TestGateHeartbeat_Unknown_StillAccepted(t *testing.T) {
	env := newTestServer(t, []string{"gate-north"})

	resp := postJSON(t, env.ts.URL+"/v1/gate/heartbeat", `{"gate_id":"gate-rogue"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var hb types.GateHeartbeatResponse
	if err := json.NewDecoder(resp.Body).Decode(&hb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !hb.OK || hb.Known {
		t.Errorf("expected ok=true known=false, got %+v", hb)
	}
}

func TestGateHeartbeat_MissingGateID_400(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/v1/gate/heartbeat", `{"uptime_s":42}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ── Regulations query ────────────────────────────────────────────────────────

func TestRegulationsQuery_NoIndex_Refuses(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/v1/regulations/query", `{"query":"Quels sont les horaires ?"}`)
	defer resp.Body.Close()

	// A refusal is still HTTP 200; the payload carries context_found=false.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out types.RegulationQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ContextFound {
		t.Error("expected context_found=false before any ingest")
	}
	if out.Answer == "" {
		t.Error("expected a fixed refusal message")
	}
}

func TestRegulationsQuery_Grounded(t *testing.T) {
	env := newTestServer(t, nil)

	chunks := []rag.Chunk{
		{ID: "reglement_Article 2", Source: "reglement", Article: "Article 2", Content: "Le parking est ouvert de 7h à 22h, voici les horaires."},
	}
	art, err := rag.BuildArtifacts(chunks, [][]float32{{1, 0}}, "const", 2)
	if err != nil {
		t.Fatalf("BuildArtifacts: %v", err)
	}
	if err := env.index.ReplaceIndex(context.Background(), art); err != nil {
		t.Fatalf("ReplaceIndex: %v", err)
	}

	// Load the new build, then query.
	reload := postJSON(t, env.ts.URL+"/v1/index/reload", `{}`)
	reload.Body.Close()
	if reload.StatusCode != http.StatusOK {
		t.Fatalf("reload: expected 200, got %d", reload.StatusCode)
	}

	resp := postJSON(t, env.ts.URL+"/v1/regulations/query", `{"query":"Quels sont les horaires ?","top_k":1}`)
	defer resp.Body.Close()

	var out types.RegulationQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.ContextFound {
		t.Fatalf("expected grounded context, got refusal %q", out.Answer)
	}
	if _, ok := out.Citations["[[CIT_1]]"]; !ok {
		t.Errorf("expected citation [[CIT_1]], got %v", out.Citations)
	}
}

func TestRegulationsQuery_MissingQuery_400(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/v1/regulations/query", `{"top_k":3}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ── Index reload ─────────────────────────────────────────────────────────────

func TestIndexReload_BeforeIngest_409(t *testing.T) {
	env := newTestServer(t, nil)

	resp := postJSON(t, env.ts.URL+"/v1/index/reload", `{}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

// ── Events listing ───────────────────────────────────────────────────────────

func TestListEvents_ReturnsAuditTrail(t *testing.T) {
	env := newTestServer(t, nil)
	seedStudent(env)

	check := postJSON(t, env.ts.URL+"/v1/access/check", `{"plate":"176 تونس 7413"}`)
	check.Body.Close()

	resp, err := http.Get(env.ts.URL + "/v1/access/events?limit=10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Events []struct {
			Plate    string `json:"plate"`
			Decision string `json:"decision"`
			RefCode  string `json:"ref_code"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(out.Events))
	}
	if out.Events[0].RefCode != types.RefAllow {
		t.Errorf("expected ALLOW event, got %s", out.Events[0].RefCode)
	}
}

func TestListEvents_BadLimit_400(t *testing.T) {
	env := newTestServer(t, nil)

	resp, err := http.Get(env.ts.URL + "/v1/access/events?limit=9999")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ── Health ───────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	env := newTestServer(t, nil)

	resp, err := http.Get(env.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
