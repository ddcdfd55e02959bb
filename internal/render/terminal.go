package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Terminal renders markdown for a terminal using glamour. A glamour
// TermRenderer is not safe for concurrent Render calls, hence the mutex.
type Terminal struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
}

// NewTerminal builds a terminal renderer. style is a glamour standard style
// name ("dark", "light", "notty", ...) or "auto".
func NewTerminal(style string, width int) (*Terminal, error) {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Terminal{renderer: renderer}, nil
}

// Render formats text, falling back to the raw text if glamour fails.
func (t *Terminal) Render(text string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n") + "\n"
}
