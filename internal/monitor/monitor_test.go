package monitor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/vita/internal/panel"
	"github.com/luki/vita/internal/reading"
	"github.com/luki/vita/internal/source"
	"github.com/luki/vita/internal/telemetry"
	"github.com/luki/vita/internal/termmap"
	"github.com/luki/vita/internal/viewport"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(fullScreen bool, status func() telemetry.Status) Model {
	m := New(Options{
		Panel: panel.Options{
			FullScreen: fullScreen,
			Map:        viewport.DefaultOptions(),
			Renderer:   termmap.Renderer{},
		},
		Interval: 10 * time.Second,
		Status:   status,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 200})
	return next.(Model)
}

func sampleUpdate(id string, humidity float64, ts string) UpdateMsg {
	r := reading.Reading{
		ID:        id,
		Location:  reading.Location{Latitude: -23.5505, Longitude: -46.6333},
		Humidity:  humidity,
		Risk:      "MÉDIO",
		Timestamp: ts,
	}
	return UpdateMsg{Current: r, Readings: []reading.Reading{r}, At: time.Now()}
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := New(Options{})
	if !strings.Contains(m.View(), "Iniciando") {
		t.Errorf("unexpected initial view: %q", m.View())
	}
}

func TestPlaceholderAndTitle(t *testing.T) {
	m := newModel(false, nil)
	v := m.View()
	for _, want := range []string{
		"VITA | Monitoramento de Risco de Deslizamento",
		"Atualiza a cada 10s",
		"Nenhum dado disponível",
	} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestUpdateShowsReadingAndTrend(t *testing.T) {
	m := newModel(false, nil)
	next, cmd := m.Update(sampleUpdate("VITA-02", 61, "2025-03-01T10:00:00"))
	if cmd != nil {
		t.Error("update scheduled a command")
	}
	next, _ = next.Update(sampleUpdate("VITA-02", 64, "2025-03-01T10:00:10"))
	m = next.(Model)

	v := m.View()
	if !strings.Contains(v, "Sensor VITA-02") || !strings.Contains(v, "64.0%") {
		t.Errorf("reading not rendered:\n%s", v)
	}
	if !strings.Contains(v, "Tendência umidade") {
		t.Error("trend not rendered after two points")
	}
	if strings.Contains(v, "Nenhum dado disponível") {
		t.Error("placeholder still shown")
	}
}

func TestToggleKeysWindowed(t *testing.T) {
	m := newModel(false, nil)
	next, _ := m.Update(sampleUpdate("VITA-01", 50, "2025-03-01T10:00:00"))
	m = next.(Model)

	if !strings.Contains(m.View(), "enter:detalhes") {
		t.Error("windowed footer lacks toggle key")
	}

	next, _ = m.Update(key("enter"))
	m = next.(Model)
	if !m.Panel().Expanded() || m.Panel().Viewport() == nil {
		t.Fatal("enter did not expand")
	}

	next, _ = m.Update(key("w"))
	m = next.(Model)
	if got := m.Panel().Viewport().DisplayZoom(); got != 15 {
		t.Errorf("w: zoom %d, want 15", got)
	}
	next, _ = m.Update(key("c"))
	m = next.(Model)
	if got := m.Panel().Viewport().DisplayZoom(); got != 18 {
		t.Errorf("c: zoom %d, want 18", got)
	}
	next, _ = m.Update(key("-"))
	m = next.(Model)
	if got := m.Panel().Viewport().DisplayZoom(); got != 17 {
		t.Errorf("-: zoom %d, want 17", got)
	}

	next, _ = m.Update(key(" "))
	m = next.(Model)
	if m.Panel().Expanded() || m.Panel().Viewport() != nil {
		t.Error("space did not collapse")
	}
}

func TestFullScreenIgnoresToggle(t *testing.T) {
	m := newModel(true, nil)
	next, _ := m.Update(sampleUpdate("VITA-01", 50, "2025-03-01T10:00:00"))
	next, _ = next.Update(key("enter"))
	m = next.(Model)

	if !m.Panel().Expanded() {
		t.Error("full-screen panel collapsed")
	}
	if strings.Contains(m.View(), "enter:detalhes") {
		t.Error("full-screen footer offers a toggle")
	}
}

func TestQuitReleasesMap(t *testing.T) {
	m := newModel(true, nil)
	next, _ := m.Update(sampleUpdate("VITA-01", 50, "2025-03-01T10:00:00"))
	m = next.(Model)
	if m.Panel().Viewport() == nil {
		t.Fatal("no map mounted")
	}

	next, cmd := m.Update(key("q"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if m.Panel().Viewport() != nil {
		t.Error("map still mounted after quit")
	}
}

func TestStalenessInTitle(t *testing.T) {
	boom := errors.New("down")
	last := time.Now().Add(-95 * time.Second)
	m := newModel(false, func() telemetry.Status {
		return telemetry.Status{LastErr: boom, LastSuccess: last}
	})
	next, _ := m.Update(clockMsg(time.Now()))
	m = next.(Model)
	if !strings.Contains(m.View(), "desatualizado 1m3") {
		t.Errorf("staleness missing:\n%s", m.View())
	}

	never := newModel(false, func() telemetry.Status {
		return telemetry.Status{LastErr: boom}
	})
	if !strings.Contains(never.View(), "sem conexão") {
		t.Error("never-connected status missing")
	}
}

func TestScrollIsBounded(t *testing.T) {
	m := newModel(false, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 5})
	m = next.(Model)
	for i := 0; i < 100; i++ {
		next, _ = m.Update(key("j"))
		m = next.(Model)
	}
	if got := len(strings.Split(m.View(), "\n")); got != 5 {
		t.Errorf("visible lines: got %d, want 5", got)
	}
	next, _ = m.Update(key("k"))
	m = next.(Model)
	if m.scroll != 99 {
		t.Errorf("scroll: got %d, want 99", m.scroll)
	}
}

// Toggling details has no path back to the synchronizer: polling keeps
// its cadence while the panel flips between states.
func TestToggleDoesNotAffectPolling(t *testing.T) {
	var fetches atomic.Int64
	f := source.FetcherFunc(func(ctx context.Context) ([]reading.Reading, error) {
		fetches.Add(1)
		return nil, nil
	})
	syncer := telemetry.New(f, telemetry.WithInterval(5*time.Millisecond))
	m := newModel(false, syncer.Status)

	syncer.Start(context.Background())
	defer syncer.Stop()

	before := fetches.Load()
	deadline := time.Now().Add(2 * time.Second)
	toggles := 0
	for fetches.Load() < before+5 {
		if time.Now().After(deadline) {
			t.Fatalf("polling stalled after %d toggles", toggles)
		}
		next, cmd := m.Update(key("enter"))
		if cmd != nil {
			t.Fatal("toggle returned a command")
		}
		m = next.(Model)
		toggles++
		time.Sleep(time.Millisecond)
	}

	if syncer.Interval() != 5*time.Millisecond {
		t.Errorf("interval changed to %v", syncer.Interval())
	}
	if !syncer.Status().Running {
		t.Error("synchronizer stopped by toggling")
	}
}
