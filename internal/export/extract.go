package export

import (
	"strings"

	"github.com/zhouzirui/z-research/internal/model/chat"
)

// Markers describe where the exportable part of a bot message lives.
type Markers struct {
	Start   string
	End     string
	Literal string
}

// DefaultMarkers match the report framing produced by the research backend.
func DefaultMarkers() Markers {
	return Markers{
		Start:   "<essay>",
		End:     "</essay>",
		Literal: "Final report:",
	}
}

type Extractor struct {
	markers Markers
}

func NewExtractor(markers Markers) *Extractor {
	return &Extractor{markers: markers}
}

// Extract pulls the report out of completed bot messages, in conversation
// order. An empty result means there is nothing to export.
func (e *Extractor) Extract(messages []chat.Message) string {
	var parts []string
	for _, msg := range messages {
		if msg.Sender != chat.SenderBot || msg.Status != chat.StatusComplete {
			continue
		}
		if part := e.extractOne(msg.RawText); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (e *Extractor) extractOne(text string) string {
	if inner, ok := between(text, e.markers.Start, e.markers.End); ok {
		return strings.TrimSpace(inner)
	}
	if e.markers.Literal == "" {
		return ""
	}
	idx := strings.Index(text, e.markers.Literal)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(dropRules(text[idx+len(e.markers.Literal):]))
}

// between returns the text inside the first complete start/end pair.
func between(text, start, end string) (string, bool) {
	if start == "" || end == "" {
		return "", false
	}
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// dropRules strips blank lines and ===/--- rule lines from the top of text.
func dropRules(text string) string {
	for {
		line, rest, found := strings.Cut(text, "\n")
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !isRule(trimmed) {
			return text
		}
		if !found {
			return ""
		}
		text = rest
	}
}

func isRule(line string) bool {
	return strings.Trim(line, "=") == "" || strings.Trim(line, "-") == ""
}
