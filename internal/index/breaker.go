package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/elara-ai/affect/internal/models"
)

// Breaker wraps an Index with a circuit breaker so a flapping backend
// fails fast instead of holding up every recall behind its timeout.
type Breaker struct {
	inner  Index
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewBreaker wraps idx. The circuit opens after 5 consecutive failures
// and probes again after 30 seconds.
func NewBreaker(idx Index, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:    "semantic-index",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("index circuit state change", "from", from.String(), "to", to.String())
		},
		// Caller mistakes are not backend faults.
		IsSuccessful: func(err error) bool {
			return err == nil || models.IsValidation(err)
		},
	}
	return &Breaker{
		inner:  idx,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// Search proxies to the wrapped index through the breaker. An open
// circuit is reported as ErrUnavailable without touching the backend.
func (b *Breaker) Search(ctx context.Context, q Query, k int) ([]models.SearchResult, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Search(ctx, q, k)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, err
	}
	results, _ := out.([]models.SearchResult)
	return results, nil
}

// Close closes the wrapped index.
func (b *Breaker) Close() error {
	return b.inner.Close()
}
