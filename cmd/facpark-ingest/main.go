// Command facpark-ingest builds the retrieval index from the regulation
// documents directory and persists it, replacing any previous build. The
// server picks the new build up on its next reload.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkraiem/facpark/server/internal/config"
	"github.com/mkraiem/facpark/server/internal/db"
	"github.com/mkraiem/facpark/server/internal/facpark/rag"
	"github.com/mkraiem/facpark/server/internal/facpark/store/sqlite"

	_ "modernc.org/sqlite"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "facpark-ingest ", log.LstdFlags|log.LUTC)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	dbConn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	writer := db.NewWorker(dbConn)
	defer writer.Close()

	chunks, err := chunkDocsDir(cfg.DocsDir, logger)
	if err != nil {
		logger.Fatalf("read documents: %v", err)
	}
	if len(chunks) == 0 {
		logger.Fatalf("no chunks produced from %s — nothing to index", cfg.DocsDir)
	}
	logger.Printf("chunked %s: %d chunks total", cfg.DocsDir, len(chunks))

	embedder := rag.NewOllamaEmbedder(rag.EmbedderConfig{
		BaseURL:    cfg.EmbedBaseURL,
		Model:      cfg.EmbedModel,
		Dimensions: cfg.EmbedDimensions,
	})

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Fatalf("embed chunks: %v", err)
	}

	art, err := rag.BuildArtifacts(chunks, vectors, embedder.ModelName(), embedder.Dimensions())
	if err != nil {
		logger.Fatalf("build artifacts: %v", err)
	}

	indexStore := sqlite.NewIndexStore(dbConn, writer)
	if err := indexStore.ReplaceIndex(ctx, art); err != nil {
		logger.Fatalf("persist index: %v", err)
	}

	logger.Printf("index build %s persisted: %d chunks, %d postings, model=%s",
		art.BuildID, len(art.Chunks), len(art.Postings), art.Model)
}

// chunkDocsDir chunks every .txt and .md file in dir, in name order so
// chunk ordinals are stable across runs.
func chunkDocsDir(dir string, logger *log.Logger) ([]rag.Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var chunks []rag.Chunk
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}

		source := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		docChunks := rag.ChunkDocument(string(content), source, rag.ChunkerConfig{})
		logger.Printf("chunked %s: %d chunks", e.Name(), len(docChunks))
		chunks = append(chunks, docChunks...)
	}
	return chunks, nil
}
