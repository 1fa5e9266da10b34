package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour/v2"
)

const (
	StyleDark    = "dark"
	StyleLight   = "light"
	StyleNoTTY   = "notty"
	StyleDracula = "dracula"

	defaultWrap = 100
)

// Pretty renders markdown for a terminal using a glamour style. Unknown
// styles fall back to notty.
func Pretty(md string, width int, style string) (string, error) {
	if width <= 0 {
		width = defaultWrap
	}

	switch strings.ToLower(style) {
	case StyleDark, StyleLight, StyleDracula, StyleNoTTY:
		style = strings.ToLower(style)
	default:
		style = StyleNoTTY
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("error creating renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return out, nil
}
