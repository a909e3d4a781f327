package risk

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestClassifyKnownTags(t *testing.T) {
	tests := []struct {
		tag  string
		want Tier
	}{
		{"ALTO", High},
		{"MÉDIO", Medium},
		{"BAIXO", Low},
	}
	for _, tt := range tests {
		p := Classify(tt.tag)
		if p.Tier != tt.want {
			t.Errorf("Classify(%q).Tier = %v, want %v", tt.tag, p.Tier, tt.want)
		}
		if p.Label == "" || p.Icon == "" || p.Color == "" {
			t.Errorf("Classify(%q): incomplete presentation %+v", tt.tag, p)
		}
	}
}

func TestClassifyFallback(t *testing.T) {
	decomposed := norm.NFD.String("MÉDIO")
	for _, tag := range []string{"", "alto", "Alto", "ALTO ", "MEDIO", "médio", decomposed, "CRÍTICO", "null", "\x00"} {
		p := Classify(tag)
		if p.Tier != Unknown {
			t.Errorf("Classify(%q).Tier = %v, want unknown", tag, p.Tier)
		}
		if p.Label != "Sem informação de risco." {
			t.Errorf("Classify(%q).Label = %q", tag, p.Label)
		}
	}
}

func TestHighRiskOnlyForExactTag(t *testing.T) {
	if !Classify("ALTO").HighRisk() {
		t.Error("ALTO must trigger high-risk mode")
	}
	for _, tag := range []string{"alto", "MÉDIO", "BAIXO", "ALTÓ", ""} {
		if Classify(tag).HighRisk() {
			t.Errorf("%q must not trigger high-risk mode", tag)
		}
	}
}

func TestLookalike(t *testing.T) {
	tests := []struct {
		tag  string
		want string
		ok   bool
	}{
		{"alto", "ALTO", true},
		{"medio", "MÉDIO", true},
		{norm.NFD.String("MÉDIO"), "MÉDIO", true},
		{" baixo ", "BAIXO", true},
		{"ALTO", "", false},
		{"CRITICO", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Lookalike(tt.tag)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookalike(%q) = %q, %v; want %q, %v", tt.tag, got, ok, tt.want, tt.ok)
		}
	}
}
