// Package telemetry keeps the current sensor reading in sync with the
// backend. A Synchronizer is an owned handle: Start begins a fixed-period
// fetch loop, Stop ends it, and nothing is published once Stop returns.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/luki/vita/internal/lib/logger/sl"
	"github.com/luki/vita/internal/metrics"
	"github.com/luki/vita/internal/reading"
	"github.com/luki/vita/internal/risk"
	"github.com/luki/vita/internal/source"
)

// DefaultInterval is the poll period of the VITA display.
const DefaultInterval = 10 * time.Second

// Update is delivered to the publisher after every successful, non-empty
// fetch.
type Update struct {
	Current  reading.Reading   // last element of the fetched sequence
	Readings []reading.Reading // the whole sequence, owned by the receiver
	At       time.Time
}

// Publisher receives updates on the synchronizer goroutine.
type Publisher func(Update)

// Status summarizes poll activity.
type Status struct {
	Running     bool
	Polls       uint64
	Failures    uint64
	Empty       uint64
	LastAttempt time.Time
	LastSuccess time.Time
	LastErr     error
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithInterval sets the poll period.
func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPublisher sets the update callback.
func WithPublisher(p Publisher) Option {
	return func(s *Synchronizer) { s.publish = p }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Synchronizer) { s.log = log }
}

// Synchronizer polls a Fetcher and publishes the latest reading.
type Synchronizer struct {
	fetcher  source.Fetcher
	interval time.Duration
	publish  Publisher
	log      *slog.Logger

	mu       sync.RWMutex
	current  reading.Reading
	has      bool
	readings []reading.Reading
	status   Status
	warned   map[string]bool

	pubMu   sync.Mutex // held while publishing; Stop takes it to fence late publishes
	stopped bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped synchronizer.
func New(fetcher source.Fetcher, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		fetcher:  fetcher,
		interval: DefaultInterval,
		log:      sl.Discard(),
		warned:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the poll period.
func (s *Synchronizer) Interval() time.Duration {
	return s.interval
}

// Start launches the poll loop. The first fetch runs immediately. Calling
// Start on a running synchronizer does nothing.
func (s *Synchronizer) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.pubMu.Lock()
	s.stopped = false
	s.pubMu.Unlock()

	s.mu.Lock()
	s.status.Running = true
	s.mu.Unlock()

	s.log.Info("starting synchronizer", slog.Duration("interval", s.interval))
	go s.run(ctx, s.done)
}

// Stop cancels the poll loop and waits for it to exit. An in-flight fetch
// is cancelled and its result discarded.
func (s *Synchronizer) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()

	s.pubMu.Lock()
	s.stopped = true
	s.pubMu.Unlock()

	<-s.done
	s.cancel = nil

	s.mu.Lock()
	s.status.Running = false
	s.mu.Unlock()

	s.log.Info("synchronizer stopped")
}

func (s *Synchronizer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The fetch runs on this goroutine, so ticks never overlap;
			// ticks missed during a slow fetch are dropped by the ticker.
			s.tick(ctx)
		}
	}
}

func (s *Synchronizer) tick(ctx context.Context) {
	start := time.Now()
	readings, err := s.fetcher.FetchAll(ctx)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		return
	}
	metrics.PollsTotal.Inc()

	s.mu.Lock()
	s.status.Polls++
	s.status.LastAttempt = start

	if err != nil {
		s.status.Failures++
		s.status.LastErr = err
		s.mu.Unlock()
		metrics.PollFailures.Inc()
		s.log.Warn("fetch failed, keeping previous reading", sl.Err(err))
		return
	}

	if len(readings) == 0 {
		s.status.Empty++
		s.mu.Unlock()
		metrics.PollEmpty.Inc()
		s.log.Debug("fetch returned no readings")
		return
	}

	latest := readings[len(readings)-1]
	s.current, s.has = latest, true
	s.readings = readings
	s.status.LastSuccess = time.Now()
	s.status.LastErr = nil
	lookalike, warn := s.noteUnknownTag(latest.Risk)
	s.mu.Unlock()

	if warn {
		s.log.Warn("unrecognized risk tag",
			slog.String("tag", latest.Risk),
			slog.String("looks_like", lookalike),
		)
	}
	tier := risk.Classify(latest.Risk).Tier
	metrics.CurrentRiskTier.Set(float64(tier))
	metrics.LastPublish.SetToCurrentTime()

	out := make([]reading.Reading, len(readings))
	copy(out, readings)
	s.deliver(ctx, Update{Current: latest, Readings: out, At: time.Now()})
}

// noteUnknownTag reports true the first time an unrecognized tag shows up,
// with the known tag it resembles if any. Callers hold s.mu.
func (s *Synchronizer) noteUnknownTag(tag string) (string, bool) {
	if risk.Classify(tag).Tier != risk.Unknown || s.warned[tag] {
		return "", false
	}
	s.warned[tag] = true
	known, _ := risk.Lookalike(tag)
	return known, true
}

func (s *Synchronizer) deliver(ctx context.Context, u Update) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if s.stopped || ctx.Err() != nil || s.publish == nil {
		return
	}
	s.publish(u)
}

// Current returns the last published reading. The bool is false until the
// first successful non-empty fetch.
func (s *Synchronizer) Current() (reading.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.has
}

// Readings returns a copy of the last non-empty fetched sequence.
func (s *Synchronizer) Readings() []reading.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reading.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// Status returns a snapshot of poll counters.
func (s *Synchronizer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
