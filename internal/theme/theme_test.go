package theme

import "testing"

func TestSeverityColor(t *testing.T) {
	tests := map[string]string{
		"low":      string(ColorLow),
		"medium":   string(ColorMedium),
		"high":     string(ColorHigh),
		"critical": string(ColorCritical),
		"":         string(ColorWarning),
	}
	for in, want := range tests {
		if got := string(SeverityColor(in)); got != want {
			t.Errorf("SeverityColor(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestStateGlyph(t *testing.T) {
	if StateGlyph("connected") != "●" {
		t.Error("connected glyph")
	}
	if StateGlyph("dormant") != "✗" {
		t.Error("dormant glyph")
	}
	if StateGlyph("whatever") != "○" {
		t.Error("fallback glyph")
	}
}
