// Package panel renders one sensor reading: risk badge, field rows, the
// predicted rainfall bar and, while expanded, the map viewport.
package panel

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/vita/internal/chart"
	"github.com/luki/vita/internal/history"
	"github.com/luki/vita/internal/reading"
	"github.com/luki/vita/internal/risk"
	"github.com/luki/vita/internal/viewport"
)

const (
	defaultMapHeight = 16
	rainAlertMM      = 50.0
	labelW           = 20
)

// Options configures a Panel.
type Options struct {
	FullScreen bool
	Map        viewport.Options
	Renderer   viewport.Renderer
	MapHeight  int
}

// Panel is the visual unit for the current reading. It owns a viewport
// controller only while expanded.
type Panel struct {
	opts Options
	vis  Visibility

	reading reading.Reading
	has     bool

	ctrl       *viewport.Controller
	mountedKey string

	trend *history.Buffer
}

// New creates an empty panel.
func New(opts Options) *Panel {
	if opts.MapHeight <= 0 {
		opts.MapHeight = defaultMapHeight
	}
	return &Panel{opts: opts, vis: NewVisibility(opts.FullScreen)}
}

// SetReading replaces the displayed reading. Visibility is untouched; an
// expanded panel remounts its map when the reading's key changed.
func (p *Panel) SetReading(r reading.Reading) {
	p.reading, p.has = r, true
	p.sync()
}

// Reading returns the displayed reading.
func (p *Panel) Reading() (reading.Reading, bool) {
	return p.reading, p.has
}

// SetTrend sets the humidity history drawn as a sparkline. A nil buffer
// hides the trend row.
func (p *Panel) SetTrend(b *history.Buffer) {
	p.trend = b
}

// Expanded reports whether details and map are shown.
func (p *Panel) Expanded() bool {
	return p.vis.Expanded()
}

// CanToggle reports whether the panel offers a details toggle.
func (p *Panel) CanToggle() bool {
	return p.vis.CanToggle()
}

// Toggle expands or collapses the details. It reports whether the state
// changed; full-screen panels never change.
func (p *Panel) Toggle() bool {
	if !p.vis.Toggle() {
		return false
	}
	p.sync()
	return true
}

// Viewport returns the live controller, or nil while collapsed.
func (p *Panel) Viewport() *viewport.Controller {
	return p.ctrl
}

// sync brings the controller in line with visibility and the reading key.
func (p *Panel) sync() {
	if !p.vis.Expanded() || !p.has {
		p.release()
		return
	}
	key := p.reading.Key()
	if p.ctrl != nil && p.mountedKey == key {
		return
	}
	if p.ctrl == nil {
		p.ctrl = viewport.New(p.opts.Renderer, p.opts.Map)
	}
	p.ctrl.Mount(viewport.LatLng{Lat: p.reading.Location.Latitude, Lng: p.reading.Location.Longitude})
	p.mountedKey = key
}

func (p *Panel) release() {
	if p.ctrl == nil {
		return
	}
	p.ctrl.Unmount()
	p.ctrl = nil
	p.mountedKey = ""
}

// Close unmounts any live map.
func (p *Panel) Close() {
	p.release()
}

// ZoomIn, ZoomOut, ZoomClose and ZoomWide forward to the live map.
func (p *Panel) ZoomIn() {
	if p.ctrl != nil {
		p.ctrl.ZoomIn()
	}
}

func (p *Panel) ZoomOut() {
	if p.ctrl != nil {
		p.ctrl.ZoomOut()
	}
}

func (p *Panel) ZoomClose() {
	if p.ctrl != nil {
		p.ctrl.ZoomClose()
	}
}

func (p *Panel) ZoomWide() {
	if p.ctrl != nil {
		p.ctrl.ZoomWide()
	}
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorBorder = lipgloss.Color("62")
	colorLabel  = lipgloss.Color("252")
	colorValue  = lipgloss.Color("250")
	colorDim    = lipgloss.Color("240")
	colorOk     = lipgloss.Color("78")
	colorWarn   = lipgloss.Color("220")
	colorCrit   = lipgloss.Color("196")
	colorRain   = lipgloss.Color("33")
	colorID     = lipgloss.Color("147")
)

// ── View ─────────────────────────────────────────────────────────────

// View renders the panel at the given total width.
func (p *Panel) View(width int) string {
	if width < 40 {
		width = 40
	}
	if !p.has {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Nenhum dado disponível")
	}

	pres := risk.Classify(p.reading.Risk)
	inner := width - 4

	var rows []string
	if pres.HighRisk() {
		rows = append(rows, alertBanner(inner))
	}
	rows = append(rows, p.renderHeader(pres, inner))
	rows = append(rows, lipgloss.NewStyle().Foreground(pres.Color).Render(pres.Label))
	rows = append(rows, "")
	rows = append(rows, p.renderFields(inner)...)

	if pres.HighRisk() {
		rows = append(rows, "", lipgloss.NewStyle().Foreground(colorCrit).Bold(true).
			Render("Combinação crítica detectada: Alta umidade + Inclinação + Vibração"))
	}

	if trend := p.renderTrend(inner); trend != "" {
		rows = append(rows, "", trend)
	}

	if p.ctrl != nil {
		rows = append(rows, "", p.ctrl.View(inner, p.opts.MapHeight))
	}

	if p.opts.FullScreen && pres.HighRisk() {
		rows = append(rows, "", evacuationBox(inner))
	}

	if p.vis.CanToggle() {
		hint := "Mostrar detalhes e mapa"
		if p.vis.Expanded() {
			hint = "Ocultar detalhes"
		}
		rows = append(rows, "", lipgloss.NewStyle().Foreground(colorDim).Render("enter")+
			lipgloss.NewStyle().Foreground(colorLabel).Render(": "+hint))
	}

	border := lipgloss.RoundedBorder()
	borderColor := colorBorder
	if pres.HighRisk() {
		border = lipgloss.ThickBorder()
		borderColor = colorCrit
	}

	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func alertBanner(width int) string {
	return lipgloss.NewStyle().
		Background(colorCrit).
		Foreground(lipgloss.Color("231")).
		Bold(true).
		Width(width).
		Align(lipgloss.Center).
		Render("⚠ ALERTA: ÁREA DE RISCO ATIVO! ⚠")
}

func (p *Panel) renderHeader(pres risk.Presentation, width int) string {
	id := lipgloss.NewStyle().Bold(true).Foreground(colorID).Render("Sensor " + p.reading.ID)

	tag := p.reading.Risk
	if tag == "" {
		tag = "N/D"
	}
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color("16")).
		Background(pres.Color).
		Bold(true).
		Padding(0, 1).
		Render(pres.Icon + " " + tag)

	gap := width - lipgloss.Width(id) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	return id + strings.Repeat(" ", gap) + badge
}

func row(label, value string) string {
	return lipgloss.NewStyle().Foreground(colorLabel).Width(labelW).Render(label) + value
}

func flag(on bool, yes, no string) string {
	if on {
		return lipgloss.NewStyle().Foreground(colorWarn).Bold(true).Render(yes)
	}
	return lipgloss.NewStyle().Foreground(colorOk).Render(no)
}

func (p *Panel) renderFields(width int) []string {
	r := p.reading
	var rows []string

	rows = append(rows, row("Umidade",
		lipgloss.NewStyle().Foreground(chart.HumidityColor(r.Humidity)).Bold(true).
			Render(fmt.Sprintf("%.1f%%", r.Humidity))))

	rows = append(rows, row("Inclinação", flag(r.Tilt, "Detectada", "Estável")))

	if r.HasVibration {
		rows = append(rows, row("Vibração", flag(r.Vibration, "Detectada", "Normal")))
	}
	if r.HasDisplacement {
		rows = append(rows, row("Deslocamento", flag(r.Displacement, "Detectado", "Normal")))
	}
	if r.HasRainPast {
		rows = append(rows, row("Chuva 48h",
			lipgloss.NewStyle().Foreground(colorValue).Render(fmt.Sprintf("%.1f mm", r.RainPast))))
	}
	if r.HasRain24h {
		rows = append(rows, row("Chuva 24h",
			lipgloss.NewStyle().Foreground(colorValue).Render(fmt.Sprintf("%.1f mm", r.Rain24h))))
	}
	if r.HasRainFuture {
		barW := width - labelW - len("Alerta! 000.0 mm") - 1
		if barW > 40 {
			barW = 40
		}
		if barW < 10 {
			barW = 10
		}
		rows = append(rows, row("Previsão de chuva", rainBar(r.RainFuture, barW)))
	}

	rows = append(rows, row("Última leitura",
		lipgloss.NewStyle().Foreground(colorDim).Render(formatTimestamp(r))))

	return rows
}

// rainBar draws the predicted rainfall bar. The fill is clamped to the
// track; the label always carries the raw value.
func rainBar(mm float64, barW int) string {
	label := fmt.Sprintf("%.1f mm", mm)
	color := colorRain
	if mm > rainAlertMM {
		label = "Alerta! " + label
		color = colorCrit
	}
	return chart.RenderBar(mm, barW, color) + " " +
		lipgloss.NewStyle().Foreground(color).Render(label)
}

func formatTimestamp(r reading.Reading) string {
	if t, ok := r.Time(); ok {
		return t.Local().Format("02/01/2006 15:04:05")
	}
	if r.Timestamp == "" {
		return "N/D"
	}
	return r.Timestamp
}

func (p *Panel) renderTrend(width int) string {
	if p.trend == nil || len(p.trend.Points) < 2 {
		return ""
	}
	const statsW = 30
	chartW := width - labelW - statsW - 2
	if chartW > 120 {
		chartW = 120
	}
	if chartW < 10 {
		chartW = 10
	}

	h := p.trend
	pts := h.LastNPoints(chartW)
	rangeMin := math.Max(0, h.Min-5)
	rangeMax := math.Min(100, h.Peak+5)
	if rangeMax <= rangeMin {
		rangeMin, rangeMax = 0, 100
	}

	frame := lipgloss.NewStyle().Foreground(colorBorder)
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(colorValue)

	spark := chart.RenderSparkline(pts, chartW, rangeMin, rangeMax, chart.HumidityColor)
	stats := dimS.Render(" méd") + valS.Render(fmt.Sprintf("%5.1f", h.Avg())) +
		dimS.Render(" mín") + valS.Render(fmt.Sprintf("%5.1f", h.Min)) +
		dimS.Render(" máx") + valS.Render(fmt.Sprintf("%5.1f", h.Peak))
	line := row("Tendência umidade", frame.Render("▕")+spark+frame.Render("▏")+stats)

	timeline := chart.RenderTimeline(pts, chartW)
	if strings.TrimSpace(timeline) == "" {
		return line
	}
	return line + "\n" + strings.Repeat(" ", labelW+1) + timeline
}

func evacuationBox(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Zona de Risco: Evacuação recomendada em 500m ao redor")
	lines := []string{
		title,
		"Monitoramento 24h ativo",
		"Nível de ameaça: Crítico",
		"Defesa civil: Notificada",
	}
	return lipgloss.NewStyle().
		Foreground(colorCrit).
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorCrit).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}
