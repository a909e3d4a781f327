// Package history provides a ring-buffer based measurement history with
// per-sensor min/peak/avg statistics. It backs the humidity trend line.
package history

import (
	"math"
	"time"

	"github.com/luki/vita/internal/reading"
)

// Point is a single data point in a sensor history.
type Point struct {
	Value float64
	Time  time.Time
}

// Buffer stores a ring buffer of values for one sensor.
type Buffer struct {
	Points []Point
	Max    int // capacity
	Min    float64
	Peak   float64
}

// NewBuffer creates a new history ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push adds a value to the history. Points not newer than the last one are
// dropped, so feeding the same sequence twice records it once.
func (b *Buffer) Push(v float64, t time.Time) bool {
	if n := len(b.Points); n > 0 && !t.After(b.Points[n-1].Time) {
		return false
	}

	p := Point{Value: v, Time: t}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	if v < b.Min {
		b.Min = v
	}
	if v > b.Peak {
		b.Peak = v
	}
	return true
}

// Avg returns the average across all stored points.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range b.Points {
		sum += p.Value
	}
	return sum / float64(len(b.Points))
}

// LastNPoints returns a copy of the last n points.
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}

// Store manages histories for all sensors.
type Store struct {
	Data     map[string]*Buffer
	Capacity int
}

// NewStore creates a new store with the given per-sensor capacity.
func NewStore(capacity int) *Store {
	return &Store{
		Data:     make(map[string]*Buffer),
		Capacity: capacity,
	}
}

// Record adds a value for the given sensor key.
func (s *Store) Record(key string, v float64, t time.Time) bool {
	b, ok := s.Data[key]
	if !ok {
		b = NewBuffer(s.Capacity)
		s.Data[key] = b
	}
	return b.Push(v, t)
}

// RecordHumidity records the humidity of every reading with a parseable
// timestamp, keyed by sensor ID. It returns how many points were new.
func (s *Store) RecordHumidity(readings []reading.Reading) int {
	added := 0
	for _, r := range readings {
		t, ok := r.Time()
		if !ok {
			continue
		}
		if s.Record(r.ID, r.Humidity, t) {
			added++
		}
	}
	return added
}

// Get returns the history buffer for a sensor key, or nil.
func (s *Store) Get(key string) *Buffer {
	return s.Data[key]
}
