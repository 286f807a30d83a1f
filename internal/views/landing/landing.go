// Package landing renders the introduction page shown before monitoring.
package landing

import (
	_ "embed"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/lanify/monitor/internal/theme"
)

//go:embed intro.md
var intro string

// Model caches the rendered page for the current width.
type Model struct {
	Width    int
	rendered string
	err      error
}

func New() Model {
	return Model{}
}

// SetWidth re-renders the page when the width changes.
func (m *Model) SetWidth(width int) {
	if width == m.Width && m.rendered != "" {
		return
	}
	m.Width = width
	m.rendered, m.err = render(width)
}

func render(width int) (string, error) {
	wrap := 80
	if width > 0 && width-4 < wrap {
		wrap = max(width-4, 20)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return "", err
	}
	return r.Render(intro)
}

func (m Model) View() string {
	if m.err != nil || m.rendered == "" {
		// Plain markdown is still readable.
		return strings.TrimSpace(intro) + "\n\n" + theme.StyleDimmed.Render("press enter to start monitoring")
	}
	return m.rendered
}
