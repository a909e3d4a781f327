// Package monitor implements the VITA landslide risk TUI using BubbleTea.
// Readings arrive from the telemetry synchronizer as UpdateMsg; the model
// only draws them and never drives polling itself.
package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/vita/internal/history"
	"github.com/luki/vita/internal/panel"
	"github.com/luki/vita/internal/telemetry"
)

const (
	clockInterval = 1 * time.Second
	historySize   = 360 // one hour at the default 10s poll
)

// ── Messages ─────────────────────────────────────────────────────────

// UpdateMsg carries a published reading into the program.
type UpdateMsg telemetry.Update

type clockMsg time.Time

// Options configures the monitor.
type Options struct {
	Panel    panel.Options
	Interval time.Duration
	// Status reports synchronizer activity for the title bar. May be nil.
	Status func() telemetry.Status
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live monitor.
type Model struct {
	panel      *panel.Panel
	history    *history.Store
	interval   time.Duration
	status     func() telemetry.Status
	width      int
	height     int
	scroll     int
	lastUpdate time.Time
	now        time.Time
	startTime  time.Time
}

// New creates the initial model.
func New(opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = telemetry.DefaultInterval
	}
	now := time.Now()
	return Model{
		panel:     panel.New(opts.Panel),
		history:   history.NewStore(historySize),
		interval:  opts.Interval,
		status:    opts.Status,
		now:       now,
		startTime: now,
	}
}

// Panel exposes the reading panel.
func (m Model) Panel() *panel.Panel {
	return m.panel
}

// ── Commands ─────────────────────────────────────────────────────────

func clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return clockCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.panel.Close()
			return m, tea.Quit
		case "enter", " ":
			m.panel.Toggle()
		case "+", "=":
			m.panel.ZoomIn()
		case "-":
			m.panel.ZoomOut()
		case "c":
			m.panel.ZoomClose()
		case "w":
			m.panel.ZoomWide()
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case clockMsg:
		m.now = time.Time(msg)
		return m, clockCmd()

	case UpdateMsg:
		m.lastUpdate = msg.At
		m.history.RecordHumidity(msg.Readings)
		m.panel.SetReading(msg.Current)
		m.panel.SetTrend(m.history.Get(msg.Current.ID))
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Iniciando..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	sections := []string{
		m.renderTitleBar(contentWidth),
		m.panel.View(contentWidth),
		m.renderFooter(contentWidth),
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	start := m.scroll
	if start > maxScroll {
		start = maxScroll
	}
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("VITA | Monitoramento de Risco de Deslizamento")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	statusParts := []string{
		dimS.Render("Atualiza a cada " + fmtInterval(m.interval)),
		dimS.Render("ativo " + fmtDuration(m.now.Sub(m.startTime))),
	}

	if !m.lastUpdate.IsZero() {
		statusParts = append(statusParts, dimS.Render(m.lastUpdate.Format("15:04:05")))
	}

	if m.status != nil {
		st := m.status()
		if st.LastErr != nil {
			var stale string
			if st.LastSuccess.IsZero() {
				stale = "sem conexão"
			} else {
				stale = "desatualizado " + fmtDuration(m.now.Sub(st.LastSuccess))
			}
			statusParts = append(statusParts,
				lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render(stale))
		}
	}

	sep := dimS.Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	labelS := lipgloss.NewStyle().Foreground(colorLabel)

	legend := lipgloss.NewStyle().Foreground(colorOk).Render("██") + dimS.Render(" baixo ") +
		lipgloss.NewStyle().Foreground(colorWarn).Render("██") + dimS.Render(" médio ") +
		lipgloss.NewStyle().Foreground(colorCrit).Render("██") + dimS.Render(" alto")

	keys := dimS.Render("q") + labelS.Render(":sair")
	if m.panel.CanToggle() {
		keys += dimS.Render("  enter") + labelS.Render(":detalhes")
	}
	keys += dimS.Render("  +/-") + labelS.Render(":zoom") +
		dimS.Render("  c/w") + labelS.Render(":200m/1km") +
		dimS.Render("  j/k") + labelS.Render(":rolar")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func fmtInterval(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", d/time.Second)
	}
	return d.String()
}

func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mm := d / time.Minute
	d -= mm * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, mm, s)
	}
	return fmt.Sprintf("%dm%02ds", mm, s)
}
