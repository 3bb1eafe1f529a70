package index

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/elara-ai/affect/internal/models"
)

// MockIndex is an in-memory Index for tests and for running without a
// Qdrant backend. Items with embeddings are scored by cosine similarity;
// when the query carries only text, items are scored by substring match.
type MockIndex struct {
	mu         sync.RWMutex
	items      []mockItem
	fail       error
	searchLog  int
	lastSearch Query
}

type mockItem struct {
	item      models.MemoryItem
	embedding []float32
}

// NewMockIndex creates an empty mock index.
func NewMockIndex() *MockIndex {
	return &MockIndex{}
}

// Add stores an item with an optional embedding.
func (m *MockIndex) Add(item models.MemoryItem, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, mockItem{item: item, embedding: embedding})
}

// SetError makes every subsequent Search return err. Pass nil to clear.
func (m *MockIndex) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// SearchCount reports how many searches have run. Test helper.
func (m *MockIndex) SearchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchLog
}

// LastQuery returns the most recent query. Test helper.
func (m *MockIndex) LastQuery() Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSearch
}

// Search scores every stored item against the query and returns the top
// k, best first.
func (m *MockIndex) Search(ctx context.Context, q Query, k int) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.searchLog++
	m.lastSearch = q
	fail := m.fail
	items := make([]mockItem, len(m.items))
	copy(items, m.items)
	m.mu.Unlock()

	if fail != nil {
		return nil, fail
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, it := range items {
		var score float64
		switch {
		case len(q.Embedding) > 0 && len(it.embedding) > 0:
			score = cosineSimilarity(q.Embedding, it.embedding)
		case q.Text != "":
			score = textScore(q.Text, it.item.Content)
		}
		if score <= 0 {
			continue
		}
		results = append(results, models.SearchResult{Item: it.item, Similarity: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close is a no-op.
func (m *MockIndex) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// textScore gives full credit for a whole-query substring hit and
// partial credit per matched word.
func textScore(query, content string) float64 {
	q := strings.ToLower(query)
	c := strings.ToLower(content)
	if strings.Contains(c, q) {
		return 0.9
	}
	words := strings.Fields(q)
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(c, w) {
			hits++
		}
	}
	return 0.7 * float64(hits) / float64(len(words))
}
