package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct {
	scores []float32
	err    error
	calls  int
}

func (s *fakeScorer) ScorePairs(_ context.Context, _ string, texts []string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.scores[:len(texts)], nil
}

type fakeGenerator struct {
	responses map[string]string
	fallback  string
	err       error
	prompts   []string
}

func (g *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	for needle, response := range g.responses {
		if strings.Contains(prompt, needle) {
			return response, nil
		}
	}
	return g.fallback, nil
}

func chunksFromTexts(texts ...string) []ScoredChunk {
	chunks := make([]ScoredChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, ScoredChunk{ID: fmt.Sprintf("c%d", i), Text: text})
	}
	return chunks
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, ClampTopK(0))
	assert.Equal(t, DefaultTopK, ClampTopK(-3))
	assert.Equal(t, 7, ClampTopK(7))
	assert.Equal(t, MaxTopK, ClampTopK(MaxTopK+1))
}

func TestRerankOrdersAndNormalizes(t *testing.T) {
	chunks := chunksFromTexts("low", "high", "mid")
	scorer := &fakeScorer{scores: []float32{0.1, 0.9, 0.5}}

	ranked, err := Rerank(context.Background(), scorer, "question", chunks)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "high", ranked[0].Text)
	assert.Equal(t, "mid", ranked[1].Text)
	assert.Equal(t, "low", ranked[2].Text)

	assert.InDelta(t, 1.0, ranked[0].NormalizedScore, 1e-6)
	assert.InDelta(t, 0.5, ranked[1].NormalizedScore, 1e-6)
	assert.InDelta(t, 0.0, ranked[2].NormalizedScore, 1e-6)

	// Input order is untouched.
	assert.Equal(t, "low", chunks[0].Text)
}

func TestRerankAllEqualScoresNormalizeToZero(t *testing.T) {
	chunks := chunksFromTexts("a", "b", "c")
	scorer := &fakeScorer{scores: []float32{0.4, 0.4, 0.4}}

	ranked, err := Rerank(context.Background(), scorer, "question", chunks)
	require.NoError(t, err)
	for _, chunk := range ranked {
		assert.Zero(t, chunk.NormalizedScore)
	}
}

func TestRerankEmptyQueryPassesThrough(t *testing.T) {
	chunks := chunksFromTexts("a", "b")
	scorer := &fakeScorer{scores: []float32{1, 0}}

	ranked, err := Rerank(context.Background(), scorer, "", chunks)
	require.NoError(t, err)
	assert.Equal(t, chunks, ranked)
	assert.Zero(t, scorer.calls)
}

func TestRerankScorerError(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("model unavailable")}
	_, err := Rerank(context.Background(), scorer, "q", chunksFromTexts("a"))
	require.Error(t, err)
}

func TestAssembleDeduplicatesKeepingFirst(t *testing.T) {
	chunks := []ScoredChunk{
		{ID: "c0", Text: "alpha", Score: 0.9},
		{ID: "c1", Text: "beta"},
		{ID: "c2", Text: "alpha", Score: 0.1},
	}

	unique := Assemble(chunks)
	require.Len(t, unique, 2)
	assert.Equal(t, "c0", unique[0].ID)
	assert.Equal(t, "c1", unique[1].ID)

	// Idempotent on its own output.
	assert.Equal(t, unique, Assemble(unique))
}

func TestAssembleEmpty(t *testing.T) {
	assert.Empty(t, Assemble(nil))
}

func TestCompressDropsIrrelevantChunks(t *testing.T) {
	gen := &fakeGenerator{responses: map[string]string{
		"keep me": "keep me",
		"noise":   "NO_OUTPUT",
	}}
	chunks := chunksFromTexts("keep me", "noise", "")

	compressed, err := Compress(context.Background(), gen, "question", chunks)
	require.NoError(t, err)
	require.Len(t, compressed, 1)
	assert.Equal(t, "keep me", compressed[0].Text)

	// The empty chunk never reaches the generator.
	assert.Len(t, gen.prompts, 2)
}

func TestCompressEmptyQueryPassesThrough(t *testing.T) {
	gen := &fakeGenerator{}
	chunks := chunksFromTexts("a", "b")

	compressed, err := Compress(context.Background(), gen, "", chunks)
	require.NoError(t, err)
	assert.Equal(t, chunks, compressed)
	assert.Empty(t, gen.prompts)
}

func TestCompressGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	_, err := Compress(context.Background(), gen, "q", chunksFromTexts("a"))
	require.Error(t, err)
}

func TestEnhancePrependsSources(t *testing.T) {
	chunks := []ScoredChunk{
		{Text: "a", Metadata: map[string]string{SourceMetadataKey: "notes.txt"}},
		{Text: "b", Metadata: map[string]string{SourceMetadataKey: "guide.md"}},
		{Text: "c", Metadata: map[string]string{SourceMetadataKey: "notes.txt"}},
		{Text: "d"},
	}

	enhanced := Enhance("context body", chunks)
	assert.Equal(t, "The following information is derived from these documents: notes.txt, guide.md.\n\ncontext body", enhanced)
}

func TestEnhanceNoSourcesUnchanged(t *testing.T) {
	assert.Equal(t, "context body", Enhance("context body", chunksFromTexts("a")))
}

func TestJoinContext(t *testing.T) {
	joined := JoinContext(chunksFromTexts("first", "second"))
	assert.Equal(t, "first"+ContextSeparator+"second", joined)
	assert.Empty(t, JoinContext(nil))
}

func TestCompose(t *testing.T) {
	prompt := Compose("the context", "the question")
	assert.Contains(t, prompt, "CONTEXT:\n---\nthe context\n---")
	assert.Contains(t, prompt, "QUESTION:\nthe question")
	assert.True(t, strings.HasSuffix(prompt, "ANSWER:"))
}
