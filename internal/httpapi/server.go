package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/rag"
	"github.com/mkraiem/facpark/server/internal/facpark/service"
	"github.com/mkraiem/facpark/server/internal/facpark/store"
	"github.com/mkraiem/facpark/server/internal/facpark/types"
	"github.com/mkraiem/facpark/server/internal/metrics"
)

// maxRequestBody caps request body size. The largest expected payload is a
// regulation query; 64 KiB is generous.
const maxRequestBody = 64 * 1024

type Dependencies struct {
	Logger           *log.Logger
	Addr             string
	Decision         *service.DecisionEngine
	HeartbeatService *service.GateHeartbeatService
	Retrieval        *rag.Engine
	Events           store.AccessEventStore
}

type Server struct {
	httpServer       *http.Server
	logger           *log.Logger
	mux              *http.ServeMux
	decision         *service.DecisionEngine
	heartbeatService *service.GateHeartbeatService
	retrieval        *rag.Engine
	events           store.AccessEventStore
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:           d.Logger,
		mux:              mux,
		decision:         d.Decision,
		heartbeatService: d.HeartbeatService,
		retrieval:        d.Retrieval,
		events:           d.Events,
	}

	mux.HandleFunc("POST /v1/access/check", s.handleAccessCheck)
	mux.HandleFunc("POST /v1/gate/heartbeat", s.handleGateHeartbeat)
	mux.HandleFunc("POST /v1/regulations/query", s.handleRegulationsQuery)
	mux.HandleFunc("POST /v1/index/reload", s.handleIndexReload)
	mux.HandleFunc("GET /v1/access/events", s.handleListEvents)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	handler := requestIDMiddleware(loggingMiddleware(d.Logger, mux))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req types.AccessCheckRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Plate) == "" {
		writeError(w, http.StatusBadRequest, "invalid_plate", "plate is required")
		return
	}

	// Evaluate never errors: faults come back as DENY/SYSTEM_ERROR.
	result := s.decision.Evaluate(r.Context(), req.Plate, req.ActorID, req.Origin)
	metrics.RecordDecision(result.Decision, result.RefCode)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGateHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.GateHeartbeatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.heartbeatService.Record(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidGateID) {
			writeError(w, http.StatusBadRequest, "invalid_gate_id", err.Error())
			return
		}
		s.logger.Printf("heartbeat error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	metrics.RecordHeartbeat(resp.Known)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegulationsQuery(w http.ResponseWriter, r *http.Request) {
	var req types.RegulationQueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_query", "query is required")
		return
	}

	// Ground never errors: retrieval faults come back as refusals with a
	// fixed message, always HTTP 200.
	resp := s.retrieval.Ground(r.Context(), req.Query, req.TopK)
	if resp.ContextFound {
		metrics.RecordRetrieval("grounded")
	} else {
		metrics.RecordRetrieval("refused")
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndexReload(w http.ResponseWriter, r *http.Request) {
	if err := s.retrieval.Reload(r.Context()); err != nil {
		if errors.Is(err, store.ErrIndexNotInitialized) {
			writeError(w, http.StatusConflict, "index_not_initialized", err.Error())
			return
		}
		s.logger.Printf("index reload error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	chunks := s.retrieval.ChunkCount()
	metrics.UpdateIndexChunks(chunks)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "chunks": chunks})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be 1..1000")
			return
		}
		limit = n
	}

	events, err := s.events.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Printf("list events error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	out := make([]accessEventItem, 0, len(events))
	for _, e := range events {
		out = append(out, accessEventItem{
			RawPlate:  e.RawPlate,
			Plate:     e.Plate,
			Decision:  e.Decision,
			RefCode:   e.RefCode,
			Message:   e.Message,
			OwnerID:   e.OwnerID,
			CheckedBy: e.CheckedBy,
			Origin:    e.Origin,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type accessEventItem struct {
	RawPlate  string `json:"raw_plate"`
	Plate     string `json:"plate"`
	Decision  string `json:"decision"`
	RefCode   string `json:"ref_code"`
	Message   string `json:"message,omitempty"`
	OwnerID   *int64 `json:"owner_id,omitempty"`
	CheckedBy *int64 `json:"checked_by,omitempty"`
	Origin    string `json:"origin,omitempty"`
	CreatedAt string `json:"created_at"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
