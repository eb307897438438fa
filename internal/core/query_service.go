package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"studyforge.io/quiz-service/internal/pipeline"
	"studyforge.io/quiz-service/internal/safety"
	"studyforge.io/quiz-service/internal/vectorstore"
)

// Answer is the query-path response: the model's answer plus the distinct
// source documents its context was drawn from.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// QueryService runs the synchronous question-answering path: validation and
// safety gating, then the full retrieval pipeline, then the generator.
type QueryService struct {
	vectors   vectorstore.Store
	generator pipeline.Generator
	scorer    pipeline.PairScorer
	filter    *safety.Filter
}

func NewQueryService(vectors vectorstore.Store, generator pipeline.Generator, scorer pipeline.PairScorer, filter *safety.Filter) *QueryService {
	return &QueryService{
		vectors:   vectors,
		generator: generator,
		scorer:    scorer,
		filter:    filter,
	}
}

// Ask answers a free-text question, optionally restricted to one document.
// topK <= 0 selects the default; values are clamped to [1, 100].
func (s *QueryService) Ask(ctx context.Context, question, docID string, topK int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if len(question) < 3 {
		return nil, ErrQueryTooShort
	}

	// Pre-pipeline safety gate: raise rejects, redact sanitizes in place.
	question, err := s.filter.Apply(question)
	if err != nil {
		return nil, err
	}

	var filter map[string]string
	if docID != "" {
		filter = map[string]string{"doc_id": docID}
	}

	chunks, err := pipeline.Retrieve(ctx, s.vectors, question, pipeline.ClampTopK(topK), filter)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	chunks, err = pipeline.Rerank(ctx, s.scorer, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("reranking failed: %w", err)
	}

	chunks = pipeline.Assemble(chunks)

	chunks, err = pipeline.Compress(ctx, s.generator, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("context compression failed: %w", err)
	}

	if len(chunks) == 0 {
		log.Printf("No relevant context found for query, answering without context")
	}
	contextBlock := pipeline.Enhance(pipeline.JoinContext(chunks), chunks)
	prompt := pipeline.Compose(contextBlock, question)

	answer, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}

	return &Answer{Answer: answer, Sources: pipeline.Sources(chunks)}, nil
}
