package viewport

import "github.com/charmbracelet/lipgloss"

// LatLng is a map coordinate in decimal degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// LayerID identifies a drawable added to a Surface.
type LayerID string

// CircleStyle describes how a circle overlay is drawn.
type CircleStyle struct {
	Color       lipgloss.Color
	FillColor   lipgloss.Color
	FillOpacity float64
	Weight      int
	Dashed      bool
}

// CoverageStyle is the dashed blue ring used for the sensor coverage area.
var CoverageStyle = CircleStyle{
	Color:       lipgloss.Color("33"),
	FillColor:   lipgloss.Color("117"),
	FillOpacity: 0.2,
	Weight:      2,
	Dashed:      true,
}

// Surface is a live map owned by exactly one Controller. The controller
// drives it imperatively; a surface never re-derives its view on its own.
type Surface interface {
	AddMarker(at LatLng) LayerID
	AddCircle(center LatLng, radiusMeters float64, style CircleStyle) LayerID
	RemoveLayer(id LayerID)

	SetView(center LatLng, zoom int)
	SetZoom(zoom int)
	Zoom() int

	// OnZoomEnd registers fn to run after every zoom change. The returned
	// func removes the listener.
	OnZoomEnd(fn func(zoom int)) (unsubscribe func())

	Render(width, height int) string
	Close()
}

// Renderer constructs map surfaces.
type Renderer interface {
	NewSurface(center LatLng, zoom, minZoom, maxZoom int) (Surface, error)
}
