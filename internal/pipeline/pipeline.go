// Package pipeline implements the retrieval-augmentation chain:
// retrieve -> rerank -> assemble -> compress -> enhance -> compose.
// Each stage is a pure transformation over scored chunk lists and tolerates
// an empty input, returning an empty or neutral result downstream.
package pipeline

import (
	"context"
	"strings"

	"studyforge.io/quiz-service/internal/vectorstore"
)

const (
	// DefaultTopK applies when a query request leaves k unset.
	DefaultTopK = 5
	// MaxTopK bounds query-time retrieval requests.
	MaxTopK = 100
)

// ContextSeparator joins assembled chunk texts into the final context block.
const ContextSeparator = "\n\n---\n\n"

// Generator is the black-box text-completion service consumed by the
// compress stage and by job workers.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ScoredChunk is the unit flowing through the pipeline stages.
type ScoredChunk struct {
	ID       string
	Text     string
	Metadata map[string]string
	// Score is the similarity score from retrieval.
	Score float32
	// RerankScore is the second, pairwise relevance score.
	RerankScore float32
	// NormalizedScore is RerankScore min-max normalized to [0,1];
	// 0 for every chunk when all raw scores are equal.
	NormalizedScore float32
}

// ClampTopK applies the default and the [1, MaxTopK] bound for query-time
// requests.
func ClampTopK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

// Retrieve queries the similarity search service for the top-k candidates,
// optionally constrained by a metadata filter.
func Retrieve(ctx context.Context, store vectorstore.Store, query string, k int, filter map[string]string) ([]ScoredChunk, error) {
	results, err := store.Query(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	chunks := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, ScoredChunk{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Score:    r.Score,
		})
	}
	return chunks, nil
}

// Texts extracts the chunk texts in order.
func Texts(chunks []ScoredChunk) []string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return texts
}

// JoinContext renders the ordered chunk texts as one context block.
func JoinContext(chunks []ScoredChunk) string {
	return strings.Join(Texts(chunks), ContextSeparator)
}
