// Package viewport manages one map surface showing a sensor position: the
// marker, the dashed coverage circle, and the zoom/center state.
//
// A Controller owns its surface for the lifetime of a mount. Every layer it
// adds is removed again on Unmount, on remount, and when new coordinates
// turn out to be invalid.
package viewport

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Options configures a Controller.
type Options struct {
	RadiusMeters float64
	InitialZoom  int
	MinZoom      int
	MaxZoom      int
	CloseZoom    int // "200 m" shortcut
	WideZoom     int // "1 km" shortcut
}

// DefaultOptions returns the stock map settings.
func DefaultOptions() Options {
	return Options{
		RadiusMeters: 60,
		InitialZoom:  18,
		MinZoom:      15,
		MaxZoom:      20,
		CloseZoom:    18,
		WideZoom:     15,
	}
}

// State is the view of a mounted controller.
type State struct {
	Center       LatLng
	Zoom         int
	RadiusMeters float64
}

// InvalidCoordinatesError is reported when a mount is asked to show a
// position outside the WGS84 range or a non-finite one.
type InvalidCoordinatesError struct {
	Lat float64
	Lng float64
}

func (e *InvalidCoordinatesError) Error() string {
	return fmt.Sprintf("invalid coordinates %.6f, %.6f", e.Lat, e.Lng)
}

// ValidateCoordinates checks that p is finite and inside [-90,90]x[-180,180].
func ValidateCoordinates(p LatLng) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) ||
		p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return &InvalidCoordinatesError{Lat: p.Lat, Lng: p.Lng}
	}
	return nil
}

// Controller drives one map surface.
type Controller struct {
	renderer Renderer
	opts     Options

	center LatLng
	zoom   int
	radius float64

	surface     Surface
	marker      LayerID
	circle      LayerID
	unsubscribe func()
	shownZoom   int // mirrored from zoom-end events, display only
	err         error
}

// New creates an unmounted controller.
func New(renderer Renderer, opts Options) *Controller {
	if opts.MinZoom > opts.MaxZoom {
		opts.MinZoom, opts.MaxZoom = opts.MaxZoom, opts.MinZoom
	}
	if !(opts.RadiusMeters > 0) || math.IsInf(opts.RadiusMeters, 0) {
		opts.RadiusMeters = DefaultOptions().RadiusMeters
	}
	return &Controller{renderer: renderer, opts: opts}
}

func (c *Controller) clampZoom(z int) int {
	if z < c.opts.MinZoom {
		return c.opts.MinZoom
	}
	if z > c.opts.MaxZoom {
		return c.opts.MaxZoom
	}
	return z
}

// Mount shows center on a fresh surface. Invalid coordinates put the
// controller in its error state without constructing anything. Mounting a
// mounted controller releases the previous surface first.
func (c *Controller) Mount(center LatLng) {
	c.Unmount()

	c.center = center
	c.zoom = c.clampZoom(c.opts.InitialZoom)
	c.radius = c.opts.RadiusMeters

	if err := ValidateCoordinates(center); err != nil {
		c.err = err
		return
	}

	s, err := c.renderer.NewSurface(center, c.zoom, c.opts.MinZoom, c.opts.MaxZoom)
	if err != nil {
		c.err = fmt.Errorf("create map surface: %w", err)
		return
	}

	c.surface = s
	c.marker = s.AddMarker(center)
	c.circle = s.AddCircle(center, c.radius, CoverageStyle)
	c.unsubscribe = s.OnZoomEnd(func(z int) { c.shownZoom = z })
	c.shownZoom = s.Zoom()
}

// Unmount synchronously detaches every layer and listener and closes the
// surface. It is safe to call on an unmounted controller.
func (c *Controller) Unmount() {
	c.err = nil
	if c.surface == nil {
		return
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.circle != "" {
		c.surface.RemoveLayer(c.circle)
		c.circle = ""
	}
	if c.marker != "" {
		c.surface.RemoveLayer(c.marker)
		c.marker = ""
	}
	c.surface.Close()
	c.surface = nil
}

// Live reports whether a surface is mounted.
func (c *Controller) Live() bool {
	return c.surface != nil
}

// Err returns the error state of the current mount, if any.
func (c *Controller) Err() error {
	return c.err
}

// State returns the view inputs of a live mount.
func (c *Controller) State() (State, bool) {
	if c.surface == nil {
		return State{}, false
	}
	return State{Center: c.center, Zoom: c.zoom, RadiusMeters: c.radius}, true
}

// DisplayZoom is the last zoom level reported by the surface.
func (c *Controller) DisplayZoom() int {
	return c.shownZoom
}

// SetView updates the center and zoom inputs. When either changed, both are
// re-applied to the live surface; a new center also moves the marker and
// replaces the circle. Invalid coordinates release the surface and switch
// to the error state.
func (c *Controller) SetView(center LatLng, zoom int) {
	if c.surface == nil {
		return
	}
	zoom = c.clampZoom(zoom)
	if center == c.center && zoom == c.zoom {
		return
	}

	if err := ValidateCoordinates(center); err != nil {
		c.Unmount()
		c.center = center
		c.err = err
		return
	}

	moved := center != c.center
	c.center, c.zoom = center, zoom
	c.surface.SetView(center, zoom)

	if moved {
		c.surface.RemoveLayer(c.marker)
		c.marker = c.surface.AddMarker(center)
		c.replaceCircle()
	}
}

// SetRadius changes the coverage radius, replacing the circle.
func (c *Controller) SetRadius(meters float64) {
	if !(meters > 0) || math.IsInf(meters, 0) || meters == c.radius {
		return
	}
	c.radius = meters
	if c.surface != nil {
		c.replaceCircle()
	}
}

func (c *Controller) replaceCircle() {
	if c.circle != "" {
		c.surface.RemoveLayer(c.circle)
	}
	c.circle = c.surface.AddCircle(c.center, c.radius, CoverageStyle)
}

// ZoomClose jumps the live surface to the close-up zoom level.
func (c *Controller) ZoomClose() {
	if c.surface != nil {
		c.surface.SetZoom(c.opts.CloseZoom)
	}
}

// ZoomWide jumps the live surface to the wide zoom level.
func (c *Controller) ZoomWide() {
	if c.surface != nil {
		c.surface.SetZoom(c.opts.WideZoom)
	}
}

// ZoomIn and ZoomOut step the live surface zoom like a scroll wheel would.
func (c *Controller) ZoomIn() {
	if c.surface != nil {
		c.surface.SetZoom(c.clampZoom(c.surface.Zoom() + 1))
	}
}

func (c *Controller) ZoomOut() {
	if c.surface != nil {
		c.surface.SetZoom(c.clampZoom(c.surface.Zoom() - 1))
	}
}

// ── View ─────────────────────────────────────────────────────────────

var (
	colorHeader = lipgloss.Color("25")
	colorActive = lipgloss.Color("78")
	colorDim    = lipgloss.Color("243")
	colorErr    = lipgloss.Color("196")
)

// View renders the map block: header, status readout, the surface and a
// legend. In the error state it renders the raw coordinates instead.
func (c *Controller) View(width, height int) string {
	if c.err != nil {
		return c.errorView(width)
	}
	if c.surface == nil {
		return lipgloss.NewStyle().Foreground(colorDim).Render("Carregando mapa...")
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)

	active := lipgloss.NewStyle().Foreground(colorActive).Render("●") + " " +
		lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Render("Monitoramento Ativo")
	radius := lipgloss.NewStyle().Foreground(colorHeader).Render(fmt.Sprintf("Raio: %gm", c.radius))
	gap := width - lipgloss.Width(active) - lipgloss.Width(radius)
	if gap < 1 {
		gap = 1
	}
	header := active + strings.Repeat(" ", gap) + radius

	status := dimS.Render(fmt.Sprintf("Zoom: %d | Lat: %.6f | Lon: %.6f",
		c.shownZoom, c.center.Lat, c.center.Lng))

	mapHeight := height - 3
	if mapHeight < 3 {
		mapHeight = 3
	}
	surface := c.surface.Render(width, mapHeight)

	legend := lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render("◉") + dimS.Render(" Sensor  ") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render("◌") + dimS.Render(fmt.Sprintf(" Área de %gm", c.radius))

	return lipgloss.JoinVertical(lipgloss.Left, header, status, surface, legend)
}

func (c *Controller) errorView(width int) string {
	title := "⚠ Erro no mapa"
	detail := c.err.Error()
	var invalid *InvalidCoordinatesError
	if errors.As(c.err, &invalid) {
		title = "⚠ Coordenadas inválidas"
		detail = fmt.Sprintf("%.6f, %.6f", invalid.Lat, invalid.Lng)
	}

	return lipgloss.NewStyle().
		Foreground(colorErr).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorErr).
		Width(width).
		Align(lipgloss.Center).
		Render(lipgloss.NewStyle().Bold(true).Render(title) + "\n" + detail)
}
