// Package termmap draws map surfaces as character grids in the terminal.
// Positions are projected with spherical Web Mercator, so circle radii and
// marker offsets scale with the zoom level like a slippy map would.
package termmap

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/luki/vita/internal/viewport"
)

const (
	tileSize     = 256.0
	earthMeters  = 156543.03392 // meters per pixel at zoom 0 on the equator
	cellPixels   = 8.0          // map pixels per terminal column
	cellAspect   = 2.0          // terminal cells are about twice as tall as wide
	gridSpacingX = 6
	gridSpacingY = 3
)

// Renderer builds terminal map surfaces.
type Renderer struct{}

// NewSurface implements viewport.Renderer.
func (Renderer) NewSurface(center viewport.LatLng, zoom, minZoom, maxZoom int) (viewport.Surface, error) {
	if minZoom > maxZoom {
		return nil, fmt.Errorf("min zoom %d above max zoom %d", minZoom, maxZoom)
	}
	if minZoom < 0 || maxZoom > 24 {
		return nil, fmt.Errorf("zoom range [%d,%d] outside [0,24]", minZoom, maxZoom)
	}
	s := &Surface{
		center:    center,
		minZoom:   minZoom,
		maxZoom:   maxZoom,
		listeners: make(map[int]func(int)),
	}
	s.zoom = s.clamp(zoom)
	return s, nil
}

type layerKind int

const (
	kindMarker layerKind = iota
	kindCircle
)

type layer struct {
	id     viewport.LayerID
	kind   layerKind
	at     viewport.LatLng
	radius float64
	style  viewport.CircleStyle
	seq    int
}

// Surface is a terminal map. It is not safe for concurrent use; the TUI
// touches it only from its update loop.
type Surface struct {
	center    viewport.LatLng
	zoom      int
	minZoom   int
	maxZoom   int
	layers    map[viewport.LayerID]layer
	seq       int
	listeners map[int]func(int)
	nextSub   int
	closed    bool
}

func (s *Surface) clamp(z int) int {
	if z < s.minZoom {
		return s.minZoom
	}
	if z > s.maxZoom {
		return s.maxZoom
	}
	return z
}

func (s *Surface) add(l layer) viewport.LayerID {
	if s.layers == nil {
		s.layers = make(map[viewport.LayerID]layer)
	}
	s.seq++
	l.id = viewport.LayerID(uuid.NewString())
	l.seq = s.seq
	s.layers[l.id] = l
	return l.id
}

// AddMarker places a sensor pin.
func (s *Surface) AddMarker(at viewport.LatLng) viewport.LayerID {
	return s.add(layer{kind: kindMarker, at: at})
}

// AddCircle draws a circle of the given radius in meters.
func (s *Surface) AddCircle(center viewport.LatLng, radiusMeters float64, style viewport.CircleStyle) viewport.LayerID {
	return s.add(layer{kind: kindCircle, at: center, radius: radiusMeters, style: style})
}

// RemoveLayer detaches a layer. Unknown IDs are ignored.
func (s *Surface) RemoveLayer(id viewport.LayerID) {
	delete(s.layers, id)
}

// Layers returns the number of attached layers.
func (s *Surface) Layers() int {
	return len(s.layers)
}

// SetView moves the view and fires zoom-end when the zoom changed.
func (s *Surface) SetView(center viewport.LatLng, zoom int) {
	s.center = center
	s.setZoom(zoom)
}

// SetZoom changes the zoom level, bounded by the surface limits.
func (s *Surface) SetZoom(zoom int) {
	s.setZoom(zoom)
}

func (s *Surface) setZoom(zoom int) {
	zoom = s.clamp(zoom)
	if zoom == s.zoom {
		return
	}
	s.zoom = zoom

	keys := make([]int, 0, len(s.listeners))
	for k := range s.listeners {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		s.listeners[k](zoom)
	}
}

// Zoom returns the current zoom level.
func (s *Surface) Zoom() int {
	return s.zoom
}

// OnZoomEnd registers a zoom listener.
func (s *Surface) OnZoomEnd(fn func(int)) func() {
	s.nextSub++
	key := s.nextSub
	s.listeners[key] = fn
	return func() { delete(s.listeners, key) }
}

// Close drops all layers and listeners.
func (s *Surface) Close() {
	s.layers = nil
	s.listeners = make(map[int]func(int))
	s.closed = true
}

// project returns world pixel coordinates at the current zoom.
func (s *Surface) project(p viewport.LatLng) (float64, float64) {
	scale := tileSize * math.Pow(2, float64(s.zoom))
	lat := math.Max(-85.05112878, math.Min(85.05112878, p.Lat))
	sin := math.Sin(lat * math.Pi / 180)
	x := (p.Lng + 180) / 360 * scale
	y := (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * scale
	return x, y
}

// MetersPerPixel is the ground resolution at a latitude and zoom.
func MetersPerPixel(lat float64, zoom int) float64 {
	return earthMeters * math.Cos(lat*math.Pi/180) / math.Pow(2, float64(zoom))
}

type cell struct {
	ch    rune
	color lipgloss.Color
	bold  bool
}

// Render draws the surface into a width x height character grid.
func (s *Surface) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if s.closed {
		return strings.Repeat(" ", width)
	}

	grid := make([][]cell, height)
	for row := range grid {
		grid[row] = make([]cell, width)
		for col := range grid[row] {
			grid[row][col] = cell{ch: ' '}
			if col%gridSpacingX == 0 && row%gridSpacingY == 0 {
				grid[row][col] = cell{ch: '·', color: lipgloss.Color("237")}
			}
		}
	}

	cx, cy := s.project(s.center)
	toCell := func(px, py float64) (float64, float64) {
		return (px-cx)/cellPixels + float64(width)/2, (py-cy)/(cellPixels*cellAspect) + float64(height)/2
	}

	ordered := make([]layer, 0, len(s.layers))
	for _, l := range s.layers {
		ordered = append(ordered, l)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].kind != ordered[j].kind {
			return ordered[i].kind == kindCircle
		}
		return ordered[i].seq < ordered[j].seq
	})

	for _, l := range ordered {
		px, py := s.project(l.at)
		col, row := toCell(px, py)
		switch l.kind {
		case kindCircle:
			s.drawCircle(grid, col, row, l)
		case kindMarker:
			c, r := int(math.Floor(col)), int(math.Floor(row))
			if r >= 0 && r < height && c >= 0 && c < width {
				grid[r][c] = cell{ch: '◉', color: lipgloss.Color("33"), bold: true}
			}
		}
	}

	var sb strings.Builder
	for row := range grid {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range grid[row] {
			if c.color == "" {
				sb.WriteRune(c.ch)
				continue
			}
			st := lipgloss.NewStyle().Foreground(c.color)
			if c.bold {
				st = st.Bold(true)
			}
			sb.WriteString(st.Render(string(c.ch)))
		}
	}
	return sb.String()
}

func (s *Surface) drawCircle(grid [][]cell, col, row float64, l layer) {
	rPx := l.radius / MetersPerPixel(l.at.Lat, s.zoom)
	rCols := rPx / cellPixels // radius in columns; rows are rCols/cellAspect

	for r := range grid {
		for c := range grid[r] {
			dx := float64(c) + 0.5 - col
			dy := (float64(r) + 0.5 - row) * cellAspect
			d := math.Hypot(dx, dy)

			switch {
			case math.Abs(d-rCols) <= 0.5:
				if l.style.Dashed && (r+c)%2 == 1 {
					continue
				}
				grid[r][c] = cell{ch: '•', color: l.style.Color}
			case d < rCols && l.style.FillOpacity > 0:
				grid[r][c] = cell{ch: '░', color: l.style.FillColor}
			}
		}
	}
}
