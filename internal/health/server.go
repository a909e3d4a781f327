// Package health serves liveness, readiness and Prometheus metrics for a
// running monitor over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luki/vita/internal/lib/logger/sl"
	"github.com/luki/vita/internal/telemetry"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (Status, string)
}

type Server struct {
	log      *slog.Logger
	address  string
	server   *http.Server
	checkers []HealthChecker
	ready    func() bool
	mu       sync.RWMutex
}

func NewServer(log *slog.Logger, address string) *Server {
	return &Server{
		log:      log,
		address:  address,
		checkers: make([]HealthChecker, 0),
	}
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, checker)
}

// SetReady installs the readiness check. Without one the server is
// always ready.
func (s *Server) SetReady(fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = fn
}

// Handler returns the router serving all endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Start() error {
	if s.address == "" {
		return fmt.Errorf("health server: empty address")
	}

	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting health server", slog.String("address", s.address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("health server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make([]HealthChecker, len(s.checkers))
	copy(checkers, s.checkers)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     StatusHealthy,
		Components: make([]ComponentHealth, 0, len(checkers)),
		Timestamp:  time.Now().UTC(),
	}

	for _, checker := range checkers {
		status, message := checker.Check(ctx)
		response.Components = append(response.Components, ComponentHealth{
			Name:    checker.Name(),
			Status:  status,
			Message: message,
		})

		if status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if status == StatusDegraded && response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
	}

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Debug("write health response", sl.Err(err))
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if ready != nil && !ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("NOT READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// staleAfter is how many poll intervals may pass without a successful
// fetch before polling is reported degraded.
const staleAfter = 3

// PollHealthChecker reports on the synchronizer's fetch history.
type PollHealthChecker struct {
	statusFunc func() telemetry.Status
	interval   time.Duration
	since      time.Time
	now        func() time.Time
}

func NewPollHealthChecker(statusFunc func() telemetry.Status, interval time.Duration) *PollHealthChecker {
	return &PollHealthChecker{
		statusFunc: statusFunc,
		interval:   interval,
		since:      time.Now(),
		now:        time.Now,
	}
}

func (c *PollHealthChecker) Name() string {
	return "poll"
}

func (c *PollHealthChecker) Check(ctx context.Context) (Status, string) {
	st := c.statusFunc()
	if !st.Running {
		return StatusUnhealthy, "synchronizer not running"
	}

	limit := staleAfter * c.interval
	now := c.now()

	if st.LastSuccess.IsZero() {
		if now.Sub(c.since) > limit {
			return StatusDegraded, "no successful fetch yet"
		}
		return StatusHealthy, "waiting for first reading"
	}

	if age := now.Sub(st.LastSuccess); age > limit {
		msg := fmt.Sprintf("last successful fetch %s ago", age.Round(time.Second))
		if st.LastErr != nil {
			msg += ": " + st.LastErr.Error()
		}
		return StatusDegraded, msg
	}
	return StatusHealthy, ""
}

// BreakerHealthChecker reports an open circuit breaker on the source.
type BreakerHealthChecker struct {
	openFunc func() bool
}

func NewBreakerHealthChecker(openFunc func() bool) *BreakerHealthChecker {
	return &BreakerHealthChecker{openFunc: openFunc}
}

func (c *BreakerHealthChecker) Name() string {
	return "source"
}

func (c *BreakerHealthChecker) Check(ctx context.Context) (Status, string) {
	if c.openFunc() {
		return StatusDegraded, "circuit breaker open"
	}
	return StatusHealthy, ""
}
