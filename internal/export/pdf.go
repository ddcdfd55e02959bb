package export

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"github.com/pkg/errors"
)

const (
	pdfFont       = "Courier"
	pdfFontSize   = 9.0
	pdfLineHeight = 4.2
	pdfMargin     = 15.0
	tabWidth      = 4
)

// PDF lays text out on A4 pages in a monospaced font at a fixed number of
// characters per line.
type PDF struct {
	lineWidth int
}

func NewPDF(lineWidth int) *PDF {
	return &PDF{lineWidth: lineWidth}
}

func (p *PDF) Available() bool {
	if p == nil || p.lineWidth <= 0 {
		return false
	}
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont(pdfFont, "", pdfFontSize)
	return !doc.Err()
}

func (p *PDF) Convert(text string) ([]byte, error) {
	if p.lineWidth <= 0 {
		return nil, errors.Errorf("invalid line width %d", p.lineWidth)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfMargin)
	doc.SetFont(pdfFont, "", pdfFontSize)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")
	lines := p.lines(text)
	for _, line := range lines {
		if r, ok := unencodable(tr, line); ok {
			return nil, errors.Errorf("%q has no cp1252 glyph", r)
		}
	}
	for _, line := range lines {
		doc.CellFormat(0, pdfLineHeight, tr(line), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

// unencodable reports the first rune tr would replace with a dot. The
// translator passes ASCII through and maps only the upper half of cp1252.
func unencodable(tr func(string) string, line string) (rune, bool) {
	for _, r := range line {
		if r >= 0x80 && tr(string(r)) == "." {
			return r, true
		}
	}
	return 0, false
}

// lines wraps on word boundaries first, then hard-breaks anything still too
// long, such as URLs.
func (p *PDF) lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth))
	wrapped := wrap.String(wordwrap.String(text, p.lineWidth), p.lineWidth)
	return strings.Split(wrapped, "\n")
}
