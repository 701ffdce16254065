package rag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
	"github.com/mkraiem/facpark/server/internal/facpark/types"
)

// Fixed user-facing refusal messages. The generative layer never gets to
// phrase these: a refusal must not be paraphrasable into an answer.
const (
	msgNoContext      = "Je ne trouve pas cette information dans le règlement du parking."
	msgIndexMissing   = "Le système de recherche n'est pas initialisé. Contactez l'administration."
	msgRetrievalError = "Erreur lors de la recherche. Réessayez plus tard."
)

const (
	excerptLenCitation = 100
	excerptLenChunk    = 200
)

// citationTag matches the internal markers the generative layer may emit.
var citationTag = regexp.MustCompile(`\[\[CIT_\d+\]\]`)

// Ground runs retrieval and fusion for a query and either returns a
// citation-tagged context block or refuses. This is the anti-hallucination
// boundary: context_found=false means no generative call may proceed with
// fabricated grounding. Faults never escape as errors — an uninitialized
// index or a failed dependency both collapse to a refusal with a fixed
// message.
func (e *Engine) Ground(ctx context.Context, query string, topK int) types.RegulationQueryResponse {
	if topK < 1 {
		topK = e.cfg.DefaultTopK
	}

	results, err := e.Retrieve(ctx, query, topK)
	if err != nil {
		if errors.Is(err, store.ErrIndexNotInitialized) {
			e.logger.Printf("grounding refused: %v", err)
			return types.RegulationQueryResponse{ContextFound: false, Answer: msgIndexMissing}
		}
		e.logger.Printf("grounding error: %v", err)
		return types.RegulationQueryResponse{ContextFound: false, Answer: msgRetrievalError}
	}

	if !anyAboveThreshold(results, e.cfg.ScoreThreshold) {
		return types.RegulationQueryResponse{ContextFound: false, Answer: msgNoContext}
	}

	var contextParts []string
	citations := make(map[string]types.Citation, len(results))
	retrieved := make([]types.RetrievedChunk, 0, len(results))

	for i, r := range results {
		label := r.Chunk.Article
		if label == "" {
			label = "Document"
		}
		contextParts = append(contextParts, fmt.Sprintf("[%d] %s: %s", i+1, label, r.Chunk.Content))

		tag := fmt.Sprintf("[[CIT_%d]]", i+1)
		citations[tag] = types.Citation{
			Source:  r.Chunk.Source,
			Article: label,
			ChunkID: r.Chunk.ID,
			Excerpt: excerpt(r.Chunk.Content, excerptLenCitation),
		}
		retrieved = append(retrieved, types.RetrievedChunk{
			ChunkID: r.Chunk.ID,
			Article: label,
			Score:   r.Score,
			Excerpt: excerpt(r.Chunk.Content, excerptLenChunk),
		})
	}

	return types.RegulationQueryResponse{
		ContextFound: true,
		Context:      strings.Join(contextParts, "\n\n"),
		Citations:    citations,
		Retrieved:    retrieved,
	}
}

// ResolveCitations replaces every recognized [[CIT_i]] marker in generated
// text with a human-readable source annotation and strips any marker that
// is not in the map. Generated output must never leak an internal tag or
// cite a source the gate did not retrieve.
func ResolveCitations(text string, citations map[string]types.Citation) string {
	for tag, cit := range citations {
		formatted := fmt.Sprintf("[Source: %s, %s]", cit.Source, cit.Article)
		text = strings.ReplaceAll(text, tag, formatted)
	}
	return citationTag.ReplaceAllString(text, "")
}

func anyAboveThreshold(results []RetrievalResult, threshold float64) bool {
	for _, r := range results {
		if r.Score >= threshold {
			return true
		}
	}
	return false
}

// excerpt truncates to n runes, marking the cut with an ellipsis.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
