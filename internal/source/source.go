// Package source implements the fetch collaborators that return every
// reading known to the backend, oldest first.
package source

import (
	"context"
	"errors"

	"github.com/luki/vita/internal/reading"
)

// Fetcher retrieves all known readings in chronological order.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]reading.Reading, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]reading.Reading, error)

func (f FetcherFunc) FetchAll(ctx context.Context) ([]reading.Reading, error) {
	return f(ctx)
}

// ErrBreakerOpen is returned while the circuit breaker rejects requests.
var ErrBreakerOpen = errors.New("source circuit breaker open")
