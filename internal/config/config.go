package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/facpark.db"

	// Operating hours
	OpenDays  []time.Weekday
	OpenHour  int // inclusive
	CloseHour int // exclusive
	DemoMode  bool

	// Gates
	KnownGates              []string
	GateStatusRetentionDays int // 0 = keep forever
	PruneIntervalHours      int // how often the pruner runs (default 6)

	// Retrieval
	DocsDir                 string
	EmbedBaseURL            string
	EmbedModel              string
	EmbedDimensions         int
	RetrievalTopK           int
	RetrievalTopNVector     int
	RetrievalTopNLexical    int
	RetrievalRRFK           int
	RetrievalWeightVector   float64
	RetrievalWeightLexical  float64
	RetrievalScoreThreshold float64
}

func FromEnv() Config {
	addr := getenvDefault("FACPARK_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("FACPARK_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("FACPARK_DB_PATH", "./data/facpark.db")

	openDays := parseWeekdays(os.Getenv("FACPARK_OPEN_DAYS"))
	if len(openDays) == 0 {
		// Monday through Saturday.
		openDays = []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}
	}
	openHour := getenvInt("FACPARK_OPEN_HOUR", 7)
	closeHour := getenvInt("FACPARK_CLOSE_HOUR", 22)

	demoMode := strings.EqualFold(os.Getenv("FACPARK_DEMO_MODE"), "true") ||
		os.Getenv("FACPARK_DEMO_MODE") == "1"

	knownGates := splitCSV(os.Getenv("FACPARK_KNOWN_GATES"))
	retentionDays := getenvInt("FACPARK_GATE_STATUS_RETENTION_DAYS", 30)
	pruneInterval := getenvInt("FACPARK_PRUNE_INTERVAL_HOURS", 6)

	docsDir := getenvDefault("FACPARK_DOCS_DIR", "./docs/reglement")
	embedBaseURL := getenvDefault("FACPARK_EMBED_BASE_URL", "http://localhost:11434")
	embedModel := getenvDefault("FACPARK_EMBED_MODEL", "nomic-embed-text")
	embedDims := getenvInt("FACPARK_EMBED_DIMENSIONS", 768)
	topK := getenvInt("FACPARK_RETRIEVAL_TOP_K", 5)
	topNVector := getenvInt("FACPARK_RETRIEVAL_TOP_N_VECTOR", 30)
	topNLexical := getenvInt("FACPARK_RETRIEVAL_TOP_N_LEXICAL", 30)
	rrfK := getenvInt("FACPARK_RETRIEVAL_RRF_K", 60)
	weightVector := getenvFloat("FACPARK_RETRIEVAL_WEIGHT_VECTOR", 1.0)
	weightLexical := getenvFloat("FACPARK_RETRIEVAL_WEIGHT_LEXICAL", 0.4)
	scoreThreshold := getenvFloat("FACPARK_RETRIEVAL_SCORE_THRESHOLD", 0.001)

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		OpenDays:  openDays,
		OpenHour:  openHour,
		CloseHour: closeHour,
		DemoMode:  demoMode,

		KnownGates:              knownGates,
		GateStatusRetentionDays: retentionDays,
		PruneIntervalHours:      pruneInterval,

		DocsDir:                 docsDir,
		EmbedBaseURL:            embedBaseURL,
		EmbedModel:              embedModel,
		EmbedDimensions:         embedDims,
		RetrievalTopK:           topK,
		RetrievalTopNVector:     topNVector,
		RetrievalTopNLexical:    topNLexical,
		RetrievalRRFK:           rrfK,
		RetrievalWeightVector:   weightVector,
		RetrievalWeightLexical:  weightLexical,
		RetrievalScoreThreshold: scoreThreshold,
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseWeekdays(v string) []time.Weekday {
	names := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	var out []time.Weekday
	for _, p := range splitCSV(v) {
		if d, ok := names[strings.ToLower(p)]; ok {
			out = append(out, d)
		}
	}
	return out
}
