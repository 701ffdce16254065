package rag

import (
	"fmt"
	"regexp"
	"strings"
)

// articlePattern matches structural headers at line start only: inline
// references like "voir Article 3" must not open a new chunk.
var articlePattern = regexp.MustCompile(`(?im)^(Article\s+\d+|R\d+)\s*[:\-–]?\s*`)

// ChunkerConfig controls the degenerate no-headers path. Articles
// themselves are never split, whatever their size.
type ChunkerConfig struct {
	// FallbackThreshold is the document size above which a header-less
	// document is split on paragraph boundaries. Defaults to 10000.
	FallbackThreshold int

	// OverlapRatio is the fraction of a fallback chunk repeated at the
	// start of the next one. Defaults to 0.15.
	OverlapRatio float64
}

func (c ChunkerConfig) withDefaults() ChunkerConfig {
	if c.FallbackThreshold <= 0 {
		c.FallbackThreshold = 10000
	}
	if c.OverlapRatio <= 0 {
		c.OverlapRatio = 0.15
	}
	return c
}

// ChunkDocument splits a regulation document into retrieval units aligned
// to its article structure. Each article runs whole from its header to the
// next header; text before the first header becomes a "Préambule" chunk.
// Output is in document order and chunk IDs are stable across re-ingestion.
func ChunkDocument(content, source string, cfg ChunkerConfig) []Chunk {
	cfg = cfg.withDefaults()

	matches := articlePattern.FindAllStringSubmatchIndex(content, -1)

	if len(matches) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		if len(content) > cfg.FallbackThreshold {
			return splitOnParagraphs(content, source, cfg.FallbackThreshold, cfg.OverlapRatio)
		}
		return []Chunk{{
			ID:      source + "_full",
			Source:  source,
			Article: "Document",
			Content: trimmed,
			EndChar: len(content),
		}}
	}

	chunks := make([]Chunk, 0, len(matches)+1)

	if pre := strings.TrimSpace(content[:matches[0][0]]); pre != "" {
		chunks = append(chunks, Chunk{
			ID:      source + "_Préambule",
			Source:  source,
			Article: "Préambule",
			Content: pre,
			EndChar: matches[0][0],
		})
	}

	for i, m := range matches {
		article := strings.TrimSpace(content[m[2]:m[3]])
		start := m[0]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		chunks = append(chunks, Chunk{
			ID:        source + "_" + article,
			Source:    source,
			Article:   article,
			Content:   strings.TrimSpace(content[start:end]),
			StartChar: start,
			EndChar:   end,
		})
	}

	return chunks
}

// splitOnParagraphs is the fallback for large header-less documents:
// paragraph-bounded chunks of at most maxSize with a word-level overlap so
// no semantic boundary is invisible to retrieval.
func splitOnParagraphs(content, source string, maxSize int, overlapRatio float64) []Chunk {
	var chunks []Chunk
	var current string
	idx := 0

	flush := func() {
		if current == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:      fmt.Sprintf("%s_part%d", source, idx),
			Source:  source,
			Article: "Document",
			Content: current,
		})
		idx++
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current == "" {
			current = para
			continue
		}
		if len(current)+len(para)+2 <= maxSize {
			current = current + "\n\n" + para
			continue
		}

		overlap := trailingWords(current, overlapRatio)
		flush()
		if overlap != "" {
			current = overlap + "\n\n" + para
		} else {
			current = para
		}
	}
	flush()

	return chunks
}

// trailingWords returns the last ratio fraction of s by word count.
func trailingWords(s string, ratio float64) string {
	words := strings.Fields(s)
	n := int(float64(len(words)) * ratio)
	if n <= 0 {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}
