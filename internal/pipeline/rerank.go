package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"

	"studyforge.io/quiz-service/internal/utils"
	"studyforge.io/quiz-service/internal/vectorstore"
)

// PairScorer computes a relevance score for every (query, text) pair in one
// batch, mirroring a cross-encoder's batched predict call.
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, texts []string) ([]float32, error)
}

// Rerank re-scores the retrieved chunks against the query, sorts them by the
// new score descending, and attaches a min-max normalized score. The stage
// passes through unchanged when the query is empty or there is nothing to
// rank; that is the broad, query-less path generation jobs take.
func Rerank(ctx context.Context, scorer PairScorer, query string, chunks []ScoredChunk) ([]ScoredChunk, error) {
	if query == "" || len(chunks) == 0 {
		return chunks, nil
	}

	scores, err := scorer.ScorePairs(ctx, query, Texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("failed to score chunks for reranking: %w", err)
	}
	if len(scores) != len(chunks) {
		return nil, fmt.Errorf("scorer returned %d scores for %d chunks", len(scores), len(chunks))
	}

	ranked := append([]ScoredChunk(nil), chunks...)
	for i := range ranked {
		ranked[i].RerankScore = scores[i]
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})

	minScore, maxScore := ranked[len(ranked)-1].RerankScore, ranked[0].RerankScore
	for i := range ranked {
		if maxScore > minScore {
			ranked[i].NormalizedScore = (ranked[i].RerankScore - minScore) / (maxScore - minScore)
		} else {
			ranked[i].NormalizedScore = 0
		}
	}
	return ranked, nil
}

// EmbeddingScorer scores pairs by cosine similarity of embeddings. It is the
// default scorer; the query is embedded once per batch.
type EmbeddingScorer struct {
	embed vectorstore.Embedder
}

func NewEmbeddingScorer(embedder vectorstore.Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embed: embedder}
}

func (s *EmbeddingScorer) ScorePairs(ctx context.Context, query string, texts []string) ([]float32, error) {
	queryVector, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scores := make([]float32, len(texts))
	for i, text := range texts {
		vector, err := s.embed.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		score, err := utils.CosineSimilarity(queryVector, vector)
		if err != nil {
			log.Printf("Error computing similarity for pair %d: %v. Scoring as 0.", i, err)
			score = 0
		}
		scores[i] = score
	}
	return scores, nil
}
