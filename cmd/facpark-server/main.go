package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkraiem/facpark/server/internal/config"
	"github.com/mkraiem/facpark/server/internal/db"
	"github.com/mkraiem/facpark/server/internal/facpark/rag"
	"github.com/mkraiem/facpark/server/internal/facpark/service"
	"github.com/mkraiem/facpark/server/internal/facpark/store"
	"github.com/mkraiem/facpark/server/internal/facpark/store/sqlite"
	"github.com/mkraiem/facpark/server/internal/httpapi"
	"github.com/mkraiem/facpark/server/internal/metrics"

	_ "modernc.org/sqlite"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "facpark-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	writer := db.NewWorker(dbConn)
	defer writer.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, dbConn, db.SeedDevOptions{KnownGates: cfg.KnownGates}); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
		logger.Printf("dev seed applied")
	}

	// Stores
	factStore := sqlite.NewFactStore(dbConn)
	eventStore := sqlite.NewAccessEventStore(dbConn, writer)
	gateStore := sqlite.NewGateStore(dbConn, writer)
	gateStatusStore := sqlite.NewGateStatusStore(dbConn, writer)
	indexStore := sqlite.NewIndexStore(dbConn, writer)

	// Services
	openDays := make(map[time.Weekday]struct{}, len(cfg.OpenDays))
	for _, d := range cfg.OpenDays {
		openDays[d] = struct{}{}
	}
	engine := service.NewDecisionEngine(factStore, eventStore, service.HoursPolicy{
		OpenDays:  openDays,
		OpenHour:  cfg.OpenHour,
		CloseHour: cfg.CloseHour,
		DemoMode:  cfg.DemoMode,
	}, logger)

	registry := service.NewGateRegistry(gateStore)
	heartbeatSvc := service.NewGateHeartbeatService(gateStatusStore, registry)

	pruner := service.NewGateStatusPruner(gateStatusStore, service.PrunerConfig{
		RetentionDays: cfg.GateStatusRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// Retrieval
	embedder := rag.NewOllamaEmbedder(rag.EmbedderConfig{
		BaseURL:    cfg.EmbedBaseURL,
		Model:      cfg.EmbedModel,
		Dimensions: cfg.EmbedDimensions,
	})
	retrieval := rag.NewEngine(indexStore, embedder, rag.RetrieverConfig{
		TopNVector:     cfg.RetrievalTopNVector,
		TopNLexical:    cfg.RetrievalTopNLexical,
		RRFK:           cfg.RetrievalRRFK,
		WeightVector:   cfg.RetrievalWeightVector,
		WeightLexical:  cfg.RetrievalWeightLexical,
		ScoreThreshold: cfg.RetrievalScoreThreshold,
		DefaultTopK:    cfg.RetrievalTopK,
	}, logger)
	if err := retrieval.Reload(ctx); err != nil {
		if errors.Is(err, store.ErrIndexNotInitialized) {
			logger.Printf("no retrieval index yet — regulation queries will refuse until facpark-ingest runs")
		} else {
			logger.Fatalf("load retrieval index: %v", err)
		}
	}
	metrics.UpdateIndexChunks(retrieval.ChunkCount())

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Addr:             cfg.HTTPAddr,
		Decision:         engine,
		HeartbeatService: heartbeatSvc,
		Retrieval:        retrieval,
		Events:           eventStore,
	})

	go func() {
		logger.Printf("listening on %s (env=%s)", cfg.HTTPAddr, cfg.Env)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
