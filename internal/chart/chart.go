// Package chart provides sparkline rendering for sensor trends, minute tick
// marks, timeline labels and clamped progress bars.
package chart

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/vita/internal/history"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// HumidityColor returns the color for a soil humidity percentage, using the
// same bands the risk model weighs (60, 75, 85).
func HumidityColor(v float64) lipgloss.Color {
	switch {
	case v >= 85:
		return lipgloss.Color("196") // red
	case v >= 75:
		return lipgloss.Color("208") // orange
	case v >= 60:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// RenderSparkline renders a sparkline with minute tick marks on the
// timeline. A subtle pipe is drawn at each minute boundary.
func RenderSparkline(points []history.Point, width int, rangeMin, rangeMax float64, color func(float64) lipgloss.Color) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder

	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		norm := (p.Value - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))

		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		if isMinuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}
		style := lipgloss.NewStyle().Foreground(color(p.Value))
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

func isMinuteTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	if i > 0 && !points[i-1].Time.IsZero() {
		return p.Time.Minute() != points[i-1].Time.Minute()
	}
	return false
}

// RenderTimeline renders the time labels under the sparkline, showing
// HH:MM at each minute tick position.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick

	for i, p := range points {
		if isMinuteTick(points, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: p.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// ClampPercent bounds a percentage to [0,100]. NaN maps to 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// BarFill returns how many of width cells a percentage fills. The value is
// clamped first, so the bar never overflows its track.
func BarFill(percent float64, width int) int {
	if width <= 0 {
		return 0
	}
	fill := int(math.Round(ClampPercent(percent) / 100 * float64(width)))
	if fill > width {
		fill = width
	}
	return fill
}

// RenderBar renders a horizontal progress bar of the given width.
func RenderBar(percent float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	fill := BarFill(percent, width)
	on := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", fill))
	off := lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render(strings.Repeat("░", width-fill))
	return on + off
}
