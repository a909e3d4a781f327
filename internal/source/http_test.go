package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luki/vita/internal/lib/logger/sl"
)

const feed = `[
 {"id":"VITA-01","local":{"latitude":-23.5,"longitude":-46.6},"umidade":70,"inclinacao":false,"risco":"BAIXO","timestamp":"2025-03-01T10:00:00"},
 {"id":"VITA-01","local":{"latitude":-23.5,"longitude":-46.6},"umidade":88,"inclinacao":true,"risco":"ALTO","timestamp":"2025-03-01T10:00:10"}
]`

func fastOpts() HTTPOptions {
	return HTTPOptions{
		Timeout:      time.Second,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		FailuresTrip: 2,
		OpenFor:      time.Minute,
	}
}

func TestHTTPFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ReadingsPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	h := NewHTTP(sl.Discard(), srv.URL+"/", fastOpts())
	if h.Endpoint() != srv.URL+ReadingsPath {
		t.Errorf("endpoint: got %q", h.Endpoint())
	}

	readings, err := h.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if readings[1].Risk != "ALTO" {
		t.Errorf("order not preserved: last risk %q", readings[1].Risk)
	}
}

func TestHTTPRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	h := NewHTTP(sl.Discard(), srv.URL, fastOpts())
	readings, err := h.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(readings) != 2 || calls.Load() != 3 {
		t.Errorf("got %d readings after %d calls", len(readings), calls.Load())
	}
}

func TestHTTPClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	h := NewHTTP(sl.Discard(), srv.URL, fastOpts())
	if _, err := h.FetchAll(context.Background()); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("404 retried: %d calls", calls.Load())
	}
}

func TestHTTPBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"oops"}`))
	}))
	defer srv.Close()

	h := NewHTTP(sl.Discard(), srv.URL, fastOpts())
	if _, err := h.FetchAll(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestHTTPBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	opts := fastOpts()
	opts.MaxAttempts = 1
	h := NewHTTP(sl.Discard(), srv.URL, opts)
	if h.BreakerOpen() {
		t.Fatal("breaker open before any call")
	}

	for i := 0; i < 2; i++ {
		if _, err := h.FetchAll(context.Background()); err == nil || errors.Is(err, ErrBreakerOpen) {
			t.Fatalf("call %d: expected plain failure, got %v", i, err)
		}
	}
	_, err := h.FetchAll(context.Background())
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if !h.BreakerOpen() {
		t.Error("BreakerOpen false after tripping")
	}
	if calls.Load() != 2 {
		t.Errorf("open breaker still hit the server: %d calls", calls.Load())
	}
}

func TestHTTPRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opts := fastOpts()
	opts.MaxAttempts = 100
	opts.InitialDelay = 50 * time.Millisecond
	h := NewHTTP(sl.Discard(), srv.URL, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := h.FetchAll(ctx); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("fetch ignored cancellation for %v", time.Since(start))
	}
}

func TestHTTPCancelledFetchDoesNotTripBreaker(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
		http.Error(w, "slow", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	defer close(release)

	opts := fastOpts()
	opts.MaxAttempts = 1
	opts.FailuresTrip = 1
	h := NewHTTP(sl.Discard(), srv.URL, opts)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		_, err := h.FetchAll(ctx)
		cancel()
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i, err)
		}
	}
	if h.BreakerOpen() {
		t.Error("cancelled fetches opened the breaker")
	}
}
