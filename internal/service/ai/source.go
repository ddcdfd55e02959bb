package ai

import (
	"context"
	"fmt"
	"strings"
)

// Emit hands one message to the transport. A non-nil error stops the source.
type Emit func(msg string) error

// Source produces the messages of one research turn.
type Source interface {
	Stream(ctx context.Context, question string, emit Emit) error
}

const (
	essayOpen  = "<essay>"
	essayClose = "</essay>"
)

// FinalReport is the banner that closes a research stream.
func FinalReport(essay string) string {
	rule := strings.Repeat("=", 16)
	return fmt.Sprintf("\n\n\n%s\nFinal report:\n%s\n\n%s\n\n", rule, rule, essay)
}

// essayOf returns the text inside the first <essay> block, or "".
func essayOf(text string) string {
	start := strings.Index(text, essayOpen)
	if start < 0 {
		return ""
	}
	rest := text[start+len(essayOpen):]
	end := strings.Index(rest, essayClose)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// chunks splits s into pieces of at most size runes.
func chunks(s string, size int) []string {
	if size <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	out := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}
