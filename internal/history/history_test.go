package history

import (
	"testing"
	"time"

	"github.com/luki/vita/internal/reading"
)

func TestHistory(t *testing.T) {
	h := NewBuffer(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		h.Push(float64(30+i), now.Add(time.Duration(i)*time.Second))
	}

	if len(h.Points) != 5 {
		t.Errorf("expected 5 points, got %d", len(h.Points))
	}

	if got := h.Points[len(h.Points)-1].Value; got != 36.0 {
		t.Errorf("newest point: got %f, want 36.0", got)
	}

	if h.Min != 30.0 {
		t.Errorf("Min: got %f, want 30.0", h.Min)
	}

	if h.Peak != 36.0 {
		t.Errorf("Peak: got %f, want 36.0", h.Peak)
	}

	pts := h.LastNPoints(3)
	if len(pts) != 3 || pts[0].Value != 34 {
		t.Errorf("LastNPoints(3): got %+v, want 34..36", pts)
	}
	if avg := h.Avg(); avg != 34.0 {
		t.Errorf("Avg: got %f, want 34.0", avg)
	}
}

func TestPushDropsStalePoints(t *testing.T) {
	h := NewBuffer(10)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

	if !h.Push(50, base) {
		t.Fatal("first push should be accepted")
	}
	if h.Push(60, base) {
		t.Error("push with equal timestamp should be dropped")
	}
	if h.Push(70, base.Add(-time.Second)) {
		t.Error("push with older timestamp should be dropped")
	}
	if len(h.Points) != 1 || h.Points[0].Value != 50 {
		t.Errorf("expected single point 50, got %+v", h.Points)
	}
}

func TestRecordHumidity(t *testing.T) {
	s := NewStore(100)
	feed := []reading.Reading{
		{ID: "A", Humidity: 60, Timestamp: "2025-03-01T10:00:00"},
		{ID: "B", Humidity: 20, Timestamp: "2025-03-01T10:00:05"},
		{ID: "A", Humidity: 65, Timestamp: "2025-03-01T10:00:10"},
		{ID: "A", Humidity: 99, Timestamp: "not a time"},
	}

	if got := s.RecordHumidity(feed); got != 3 {
		t.Errorf("first pass: got %d new points, want 3", got)
	}
	// The backend returns the whole log on every poll.
	if got := s.RecordHumidity(feed); got != 0 {
		t.Errorf("second pass: got %d new points, want 0", got)
	}

	a := s.Get("A")
	if a == nil || len(a.Points) != 2 {
		t.Fatalf("sensor A: got %+v", a)
	}
	if a.Points[1].Value != 65 || a.Min != 60 || a.Peak != 65 {
		t.Errorf("sensor A stats: %+v min=%f peak=%f", a.Points, a.Min, a.Peak)
	}
	if s.Get("C") != nil {
		t.Error("unknown sensor should have no history")
	}
}
