// Package risk maps the backend risk tag of a reading to its display
// semantics. Classify is the single place that decides high-risk mode.
package risk

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tier is the coarse severity derived from a risk tag.
type Tier int

const (
	Unknown Tier = iota
	Low
	Medium
	High
)

func (t Tier) String() string {
	switch t {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// Known risk tags as emitted by the backend.
const (
	TagHigh   = "ALTO"
	TagMedium = "MÉDIO"
	TagLow    = "BAIXO"
)

// Presentation is the derived display data for one risk tag.
type Presentation struct {
	Tier  Tier
	Color lipgloss.Color
	Icon  string
	Label string
}

// HighRisk reports whether the banner, pulsing border and evacuation notice
// are shown.
func (p Presentation) HighRisk() bool {
	return p.Tier == High
}

var presentations = map[string]Presentation{
	TagHigh: {
		Tier:  High,
		Color: lipgloss.Color("196"), // red
		Icon:  "▲",
		Label: "Alto risco de deslizamento! Atenção máxima.",
	},
	TagMedium: {
		Tier:  Medium,
		Color: lipgloss.Color("220"), // yellow
		Icon:  "▲",
		Label: "Risco intermediário, monitoramento necessário.",
	},
	TagLow: {
		Tier:  Low,
		Color: lipgloss.Color("78"), // soft green
		Icon:  "▲",
		Label: "Baixo risco no momento.",
	},
}

var unknown = Presentation{
	Tier:  Unknown,
	Color: lipgloss.Color("245"),
	Icon:  "△",
	Label: "Sem informação de risco.",
}

// Classify returns the presentation for a risk tag. Matching is exact:
// "alto" or a decomposed "MÉDIO" fall back to Unknown.
func Classify(tag string) Presentation {
	if p, ok := presentations[tag]; ok {
		return p
	}
	return unknown
}

// Lookalike reports which known tag an unrecognized tag would match if case
// and accents were ignored. It is only meant for diagnostics.
func Lookalike(tag string) (string, bool) {
	if _, ok := presentations[tag]; ok {
		return "", false
	}
	folded := fold(tag)
	if folded == "" {
		return "", false
	}
	for _, known := range []string{TagHigh, TagMedium, TagLow} {
		if fold(known) == folded {
			return known, true
		}
	}
	return "", false
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	res, _, err := transform.String(t, s)
	if err != nil {
		res = s
	}
	return strings.ToUpper(strings.TrimSpace(res))
}
