// Package index defines the contract with the external semantic index and
// its client implementations. The affective core queries the index; it
// never owns or mutates it.
package index

import (
	"context"
	"errors"

	"github.com/elara-ai/affect/internal/models"
)

// ErrUnavailable is returned when the index cannot be reached. Callers in
// the recall path degrade gracefully instead of failing.
var ErrUnavailable = errors.New("semantic index unavailable")

// Query carries a recall query. Embedding is required by vector-backed
// implementations; Text is used by implementations that embed server-side
// or match lexically (the in-memory test index).
type Query struct {
	Text      string
	Embedding []float32
}

// Index is the nearest-neighbor search contract. Search returns up to k
// candidates with raw similarity in [0,1], best first. Implementations
// must honor ctx cancellation and tolerate the backend being unreachable
// by returning an error rather than blocking indefinitely.
type Index interface {
	Search(ctx context.Context, q Query, k int) ([]models.SearchResult, error)
	Close() error
}
