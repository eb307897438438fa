package vectorstore

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder maps words onto a small fixed-dimension count vector, giving
// deterministic, meaningfully different embeddings without a model.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 16)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%16]++
	}
	return vec, nil
}

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	m := NewMemory(hashEmbedder{})

	require.NoError(t, m.Upsert(ctx, "the solar system has eight planets", map[string]string{"doc_id": "doc-1", "source": "space.txt"}, "doc-1_0"))
	require.NoError(t, m.Upsert(ctx, "jupiter is the largest planet", map[string]string{"doc_id": "doc-1", "source": "space.txt"}, "doc-1_1"))
	require.NoError(t, m.Upsert(ctx, "bread needs flour water and yeast", map[string]string{"doc_id": "doc-2", "source": "baking.txt"}, "doc-2_0"))
	return m
}

func TestMemory_QueryRanksBySimilarity(t *testing.T) {
	m := newTestMemory(t)

	results, err := m.Query(context.Background(), "which is the largest planet", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-1_1", results[0].ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestMemory_QueryFilter(t *testing.T) {
	m := newTestMemory(t)

	results, err := m.Query(context.Background(), "what about planets", 10, map[string]string{"doc_id": "doc-2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-2_0", results[0].ID)
}

func TestMemory_EmptyQueryIsBroadPath(t *testing.T) {
	m := newTestMemory(t)

	// Empty query returns filtered entries in insertion order, unscored.
	results, err := m.Query(context.Background(), "", 10, map[string]string{"doc_id": "doc-1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-1_0", results[0].ID)
	assert.Equal(t, "doc-1_1", results[1].ID)
	assert.Zero(t, results[0].Score)
}

func TestMemory_EmptyQueryHonorsK(t *testing.T) {
	m := newTestMemory(t)

	results, err := m.Query(context.Background(), "", 1, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemory_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(hashEmbedder{})

	require.NoError(t, m.Upsert(ctx, "old text", map[string]string{"doc_id": "d"}, "d_0"))
	require.NoError(t, m.Upsert(ctx, "new text", map[string]string{"doc_id": "d"}, "d_0"))

	results, err := m.Query(ctx, "", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new text", results[0].Text)
}

func TestMemory_QueryEmptyStore(t *testing.T) {
	m := NewMemory(hashEmbedder{})

	results, err := m.Query(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
