package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"studyforge.io/quiz-service/internal/utils"
)

// Memory is a brute-force cosine similarity store. Vectors are computed at
// upsert time through the injected Embedder and held in insertion order.
type Memory struct {
	mu      sync.RWMutex
	embed   Embedder
	entries []entry
	byID    map[string]int
}

type entry struct {
	id       string
	text     string
	metadata map[string]string
	vector   []float32
}

func NewMemory(embedder Embedder) *Memory {
	return &Memory{
		embed: embedder,
		byID:  make(map[string]int),
	}
}

func (m *Memory) Upsert(ctx context.Context, text string, metadata map[string]string, id string) error {
	vector, err := m.embed.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed text for %s: %w", id, err)
	}

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{id: id, text: text, metadata: meta, vector: vector}
	if pos, ok := m.byID[id]; ok {
		m.entries[pos] = e
		return nil
	}
	m.byID[id] = len(m.entries)
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Query(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error) {
	if k <= 0 {
		k = 5
	}

	if query == "" {
		return m.listFiltered(k, filter), nil
	}

	queryVector, err := m.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Result
	for _, e := range m.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		score, err := utils.CosineSimilarity(queryVector, e.vector)
		if err != nil {
			continue // Skip entries with incompatible vectors
		}
		results = append(results, toResult(e, score))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// listFiltered is the broad, query-less path: filtered entries in insertion
// order, which for a single document means ordinal order.
func (m *Memory) listFiltered(k int, filter map[string]string) []Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Result
	for _, e := range m.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		results = append(results, toResult(e, 0))
		if len(results) == k {
			break
		}
	}
	return results
}

func matchesFilter(metadata, filter map[string]string) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func toResult(e entry, score float32) Result {
	meta := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		meta[k] = v
	}
	return Result{ID: e.id, Text: e.text, Metadata: meta, Score: score}
}
