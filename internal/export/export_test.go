package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-research/internal/model/chat"
)

func bot(text string) chat.Message {
	return chat.Message{Sender: chat.SenderBot, RawText: text, Status: chat.StatusComplete}
}

func TestExtractWithoutMarkersIsEmpty(t *testing.T) {
	ex := NewExtractor(DefaultMarkers())
	assert.Empty(t, ex.Extract(nil))
	assert.Empty(t, ex.Extract([]chat.Message{bot("just a chat reply"), bot("another one")}))
}

func TestExtractMarkerPair(t *testing.T) {
	ex := NewExtractor(DefaultMarkers())
	got := ex.Extract([]chat.Message{bot("Planning...\n<essay>\n  The essay body.  \n</essay>\ntrailing")})
	assert.Equal(t, "The essay body.", got)
}

func TestExtractPrefersPairOverLiteral(t *testing.T) {
	ex := NewExtractor(DefaultMarkers())
	text := "<essay>inner</essay>\n\n================\nFinal report:\n================\n\nbanner copy"
	assert.Equal(t, "inner", ex.Extract([]chat.Message{bot(text)}))
}

func TestExtractLiteralMarkerDropsRules(t *testing.T) {
	ex := NewExtractor(DefaultMarkers())
	text := "searching\n\n\n================\nFinal report:\n================\n\nThe report.\n---\nstill report\n\n"
	assert.Equal(t, "The report.\n---\nstill report", ex.Extract([]chat.Message{bot(text)}))
}

func TestExtractUnclosedPairFallsBackToLiteral(t *testing.T) {
	ex := NewExtractor(DefaultMarkers())
	assert.Empty(t, ex.Extract([]chat.Message{bot("<essay>never closed")}))
	assert.Equal(t, "tail", ex.Extract([]chat.Message{bot("<essay>open Final report: tail")}))
}

func TestExtractSkipsUserAndUnfinishedMessages(t *testing.T) {
	ex := NewExtractor(DefaultMarkers())
	messages := []chat.Message{
		{Sender: chat.SenderUser, RawText: "<essay>mine</essay>", Status: chat.StatusComplete},
		{Sender: chat.SenderBot, RawText: "<essay>partial</essay>", Status: chat.StatusStreaming},
		{Sender: chat.SenderBot, RawText: "<essay>broken</essay>", Status: chat.StatusErrored},
		bot("<essay>first</essay>"),
		bot("<essay>   </essay>"),
		bot("Final report:\nsecond"),
	}
	assert.Equal(t, "first\n\nsecond", ex.Extract(messages))
}

func TestExtractCustomMarkers(t *testing.T) {
	ex := NewExtractor(Markers{Start: "[[", End: "]]"})
	assert.Equal(t, "x", ex.Extract([]chat.Message{bot("a [[ x ]] b")}))
	assert.Empty(t, ex.Extract([]chat.Message{bot("Final report: nope")}))
}

type stubConverter struct {
	available bool
	data      []byte
	err       error
	calls     int
}

func (s *stubConverter) Available() bool { return s.available }

func (s *stubConverter) Convert(string) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

var fixed = time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))

func TestExportStructuredWhenAvailable(t *testing.T) {
	conv := &stubConverter{available: true, data: []byte("%PDF-stub")}
	a := New(conv, WithClock(func() time.Time { return fixed })).Export("report")

	assert.Equal(t, KindPDF, a.Kind)
	assert.Equal(t, "report-20250304T040607Z.pdf", a.Filename)
	assert.Equal(t, "application/pdf", a.ContentType)
	assert.Equal(t, []byte("%PDF-stub"), a.Data)
}

func TestExportFallsBackToText(t *testing.T) {
	cases := map[string]Converter{
		"nil converter":     nil,
		"unavailable":       &stubConverter{available: false},
		"conversion failed": &stubConverter{available: true, err: errors.New("boom")},
	}
	for name, conv := range cases {
		t.Run(name, func(t *testing.T) {
			a := New(conv, WithClock(func() time.Time { return fixed })).Export("plain report")
			assert.Equal(t, KindText, a.Kind)
			assert.Equal(t, "report-20250304T040607Z.txt", a.Filename)
			assert.Equal(t, "text/plain; charset=utf-8", a.ContentType)
			assert.Equal(t, "plain report", string(a.Data))
		})
	}
}

func TestExportChecksAvailabilityEachCall(t *testing.T) {
	conv := &stubConverter{data: []byte("%PDF")}
	e := New(conv)

	assert.Equal(t, KindText, e.Export("a").Kind)
	conv.available = true
	assert.Equal(t, KindPDF, e.Export("a").Kind)
	assert.Equal(t, 1, conv.calls)
}

func TestPDFConvert(t *testing.T) {
	p := NewPDF(60)
	require.True(t, p.Available())

	data, err := p.Convert("Title\n\nSome text with accents: café, naïve.\n\tindented")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestPDFLongTextPaginates(t *testing.T) {
	p := NewPDF(80)
	short, err := p.Convert("one line")
	require.NoError(t, err)
	long, err := p.Convert(strings.Repeat("a line of report text\n", 400))
	require.NoError(t, err)
	assert.Greater(t, len(long), len(short))
}

func TestPDFUnavailableWithoutWidth(t *testing.T) {
	p := NewPDF(0)
	assert.False(t, p.Available())
	_, err := p.Convert("x")
	assert.Error(t, err)

	a := New(p).Export("fallback")
	assert.Equal(t, KindText, a.Kind)
}

func TestPDFRejectsTextOutsideCodePage(t *testing.T) {
	p := NewPDF(60)
	_, err := p.Convert("研究报告\n你好, 世界")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cp1252")

	a := New(p).Export("研究报告\n你好, 世界")
	assert.Equal(t, KindText, a.Kind)
	assert.Equal(t, "研究报告\n你好, 世界", string(a.Data))
	assert.True(t, strings.HasSuffix(a.Filename, ".txt"))
}

func TestPDFKeepsCodePageSymbols(t *testing.T) {
	a := New(NewPDF(60)).Export("Price: 5 €, “quoted”")
	assert.Equal(t, KindPDF, a.Kind)
}

func TestPDFLinesRespectWidth(t *testing.T) {
	p := NewPDF(20)
	text := "the quick brown fox jumps over the lazy dog\n" +
		strings.Repeat("x", 45) + "\n\tcafé au lait"
	for _, line := range p.lines(text) {
		assert.LessOrEqual(t, utf8.RuneCountInString(line), 20, "line %q", line)
		assert.NotContains(t, line, "\t")
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	a := Artifact{Kind: KindText, Filename: "report-x.txt", Data: []byte("hello")}

	path, err := Save(dir, a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report-x.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = Save(dir, Artifact{})
	assert.Error(t, err)
}
