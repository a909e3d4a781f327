package termmap

import (
	"math"
	"strings"
	"testing"

	"github.com/luki/vita/internal/viewport"
)

var center = viewport.LatLng{Lat: -23.5505, Lng: -46.6333}

func newSurface(t *testing.T) *Surface {
	t.Helper()
	s, err := Renderer{}.NewSurface(center, 18, 15, 20)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	return s.(*Surface)
}

func TestNewSurfaceRejectsBadRange(t *testing.T) {
	if _, err := (Renderer{}).NewSurface(center, 18, 20, 15); err == nil {
		t.Error("expected error for inverted zoom range")
	}
}

func TestRenderMarkerAndCircle(t *testing.T) {
	s := newSurface(t)
	s.AddCircle(center, 60, viewport.CoverageStyle)
	s.AddMarker(center)

	out := s.Render(60, 20)
	lines := strings.Split(out, "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(lines))
	}
	if !strings.Contains(out, "◉") {
		t.Error("marker not drawn")
	}
	if !strings.Contains(out, "•") {
		t.Error("circle ring not drawn")
	}
	t.Logf("\n%s", out)
}

func TestCircleScalesWithZoom(t *testing.T) {
	s := newSurface(t)
	s.AddCircle(center, 60, viewport.CoverageStyle)

	near := strings.Count(s.Render(80, 30), "░")
	s.SetZoom(15)
	wide := strings.Count(s.Render(80, 30), "░")
	if wide >= near {
		t.Errorf("circle fill should shrink when zooming out: z18=%d z15=%d", near, wide)
	}
}

func TestRemoveLayer(t *testing.T) {
	s := newSurface(t)
	id := s.AddCircle(center, 60, viewport.CoverageStyle)
	s.AddMarker(center)
	if s.Layers() != 2 {
		t.Fatalf("expected 2 layers, got %d", s.Layers())
	}
	s.RemoveLayer(id)
	s.RemoveLayer("missing")
	if s.Layers() != 1 {
		t.Errorf("expected 1 layer, got %d", s.Layers())
	}
	if strings.Contains(s.Render(60, 20), "•") {
		t.Error("removed circle still drawn")
	}
}

func TestZoomEndListeners(t *testing.T) {
	s := newSurface(t)
	var seen []int
	unsubscribe := s.OnZoomEnd(func(z int) { seen = append(seen, z) })

	s.SetZoom(19)
	s.SetZoom(19)
	s.SetZoom(99)
	s.SetView(center, 16)
	unsubscribe()
	s.SetZoom(17)

	want := []int{19, 20, 16}
	if len(seen) != len(want) {
		t.Fatalf("zoom events: got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("zoom events: got %v, want %v", seen, want)
			break
		}
	}
}

func TestMetersPerPixel(t *testing.T) {
	got := MetersPerPixel(0, 0)
	if math.Abs(got-156543.03392) > 1e-6 {
		t.Errorf("equator z0: got %f", got)
	}
	if MetersPerPixel(60, 10) >= MetersPerPixel(0, 10) {
		t.Error("resolution should shrink toward the poles")
	}
}
