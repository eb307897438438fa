package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// noOutputSentinel is the marker the extraction prompt asks for when a chunk
// contains nothing relevant to the query.
const noOutputSentinel = "NO_OUTPUT"

const extractionPromptFormat = `Given the following question and context, extract any part of the context AS IS that is relevant to answer the question. Do not paraphrase. If none of the context is relevant, reply with exactly %s.

Question: %s

Context:
%s

Extracted relevant parts:`

// Compress reduces each chunk to the sentences relevant to the query, using
// the generative service as an extraction aid. Chunks that compress to
// nothing are dropped. With an empty query or no chunks the stage passes
// through unchanged.
func Compress(ctx context.Context, gen Generator, query string, chunks []ScoredChunk) ([]ScoredChunk, error) {
	if query == "" || len(chunks) == 0 {
		return chunks, nil
	}

	compressed := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		prompt := fmt.Sprintf(extractionPromptFormat, noOutputSentinel, query, chunk.Text)
		extracted, err := gen.Complete(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to compress chunk %s: %w", chunk.ID, err)
		}
		extracted = strings.TrimSpace(extracted)
		if extracted == "" || strings.EqualFold(extracted, noOutputSentinel) {
			continue
		}
		chunk.Text = extracted
		compressed = append(compressed, chunk)
	}
	return compressed, nil
}
