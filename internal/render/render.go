// Package render turns raw message text into display markup.
package render

import (
	"bytes"
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer converts accumulated raw text into safe markup. Implementations
// must be pure and total: the same input always yields the same output and
// no input is rejected.
type Renderer interface {
	Render(text string) string
}

// Func adapts a plain function to Renderer.
type Func func(text string) string

// Render calls f.
func (f Func) Render(text string) string { return f(text) }

var languageClass = regexp.MustCompile(`^language-[\w+#-]+$`)

// Markdown renders GitHub-flavoured markdown to HTML and sanitises the result.
// Raw HTML embedded in the source is never passed through.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdown returns a Markdown renderer safe for concurrent use.
func NewMarkdown() *Markdown {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(languageClass).OnElements("code")

	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: policy,
	}
}

// Render converts text in full. Partial documents (an unterminated code
// fence, a dangling list) still produce balanced markup because the whole
// document is parsed again on every call.
func (m *Markdown) Render(text string) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		return "<pre>" + Escape(text) + "</pre>"
	}
	return m.policy.Sanitize(buf.String())
}

// Escape returns text with HTML special characters escaped. User messages are
// displayed this way instead of being rendered.
func Escape(text string) string {
	return html.EscapeString(text)
}

// ErrorNotice returns the visible markup appended to a message whose stream
// failed.
func ErrorNotice(reason string) string {
	if reason == "" {
		reason = "connection lost"
	}
	return `<p class="stream-error">⚠ Response interrupted: ` + Escape(reason) + `</p>`
}
