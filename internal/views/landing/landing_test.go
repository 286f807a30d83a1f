package landing

import (
	"strings"
	"testing"
)

func TestViewRendersIntro(t *testing.T) {
	m := New()
	m.SetWidth(100)
	if m.err != nil {
		t.Fatalf("render: %v", m.err)
	}
	v := m.View()
	for _, want := range []string{"Monitor", "departure"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewBeforeRenderFallsBack(t *testing.T) {
	v := New().View()
	if !strings.Contains(v, "# lanify") {
		t.Error("unrendered view should show the raw markdown")
	}
}

func TestSetWidthCaches(t *testing.T) {
	m := New()
	m.SetWidth(60)
	first := m.rendered
	m.SetWidth(60)
	if m.rendered != first {
		t.Error("same width should not re-render")
	}
}
