package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/luki/vita/internal/lib/logger/sl"
	"github.com/luki/vita/internal/metrics"
	"github.com/luki/vita/internal/reading"
)

// ReadingsPath is the backend endpoint listing every stored reading.
const ReadingsPath = "/api/sensores-json"

const maxBody = 32 << 20

// HTTPOptions tunes the HTTP fetcher.
type HTTPOptions struct {
	Timeout      time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	FailuresTrip int
	OpenFor      time.Duration
}

// HTTP fetches readings from the VITA backend. Transient failures are
// retried with exponential backoff inside one call; repeated failures open
// a circuit breaker so a dead backend is not hammered every tick.
type HTTP struct {
	log      *slog.Logger
	endpoint string
	client   *http.Client
	opts     HTTPOptions
	breaker  *gobreaker.CircuitBreaker
}

// NewHTTP builds a fetcher for the backend at baseURL.
func NewHTTP(log *slog.Logger, baseURL string, opts HTTPOptions) *HTTP {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.FailuresTrip < 1 {
		opts.FailuresTrip = 5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}

	h := &HTTP{
		log:      log,
		endpoint: strings.TrimRight(strings.TrimSpace(baseURL), "/") + ReadingsPath,
		client:   &http.Client{Timeout: opts.Timeout},
		opts:     opts,
	}

	fails := uint32(opts.FailuresTrip)
	h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "backend",
		Timeout: opts.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		// A fetch abandoned by its caller says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("source breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.BreakerState.WithLabelValues("backend").Set(0)
	return h
}

// Endpoint returns the full URL polled by the fetcher.
func (h *HTTP) Endpoint() string {
	return h.endpoint
}

// BreakerOpen reports whether the circuit breaker currently rejects fetches.
func (h *HTTP) BreakerOpen() bool {
	return h.breaker.State() == gobreaker.StateOpen
}

// FetchAll implements Fetcher.
func (h *HTTP) FetchAll(ctx context.Context) ([]reading.Reading, error) {
	res, err := h.breaker.Execute(func() (any, error) {
		return h.fetchWithRetry(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return res.([]reading.Reading), nil
}

func (h *HTTP) fetchWithRetry(ctx context.Context) ([]reading.Reading, error) {
	bo := backoff.NewExponentialBackOff()
	if h.opts.InitialDelay > 0 {
		bo.InitialInterval = h.opts.InitialDelay
	}
	if h.opts.MaxDelay > 0 {
		bo.MaxInterval = h.opts.MaxDelay
	}
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(h.opts.MaxAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData[[]reading.Reading](func() ([]reading.Reading, error) {
		attempt++
		return h.fetchOnce(ctx)
	}, policy, func(err error, next time.Duration) {
		h.log.Debug("fetch attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", h.opts.MaxAttempts),
			slog.Duration("retry_in", next),
			sl.Err(err),
		)
	})
}

func (h *HTTP) fetchOnce(ctx context.Context) ([]reading.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request readings: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		// Client errors will not fix themselves within one tick.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	readings, skipped, err := reading.DecodeList(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if skipped > 0 {
		h.log.Warn("skipped malformed readings", slog.Int("count", skipped))
	}
	return readings, nil
}
