package export

import (
	"time"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "txt"
)

// Artifact is a downloadable rendition of an extracted report.
type Artifact struct {
	Kind        Kind
	Filename    string
	ContentType string
	Data        []byte
}

// Converter turns plain text into a structured document. Available is asked
// on every export, so a converter may come and go at runtime.
type Converter interface {
	Available() bool
	Convert(text string) ([]byte, error)
}

type Exporter struct {
	converter Converter
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Exporter)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an Exporter. A nil converter means plain text only.
func New(converter Converter, opts ...Option) *Exporter {
	e := &Exporter{
		converter: converter,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export never fails: when the document conversion is missing or breaks, the
// text itself is returned as a plain-text artifact.
func (e *Exporter) Export(text string) Artifact {
	stamp := e.now().UTC().Format("20060102T150405Z")

	if e.converter != nil && e.converter.Available() {
		data, err := e.converter.Convert(text)
		if err == nil {
			return Artifact{
				Kind:        KindPDF,
				Filename:    filename(stamp, KindPDF),
				ContentType: "application/pdf",
				Data:        data,
			}
		}
		e.logger.Warn().Err(err).Msg("export: document conversion failed, falling back to text")
	}

	return Artifact{
		Kind:        KindText,
		Filename:    filename(stamp, KindText),
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(text),
	}
}

func filename(stamp string, kind Kind) string {
	return "report-" + stamp + "." + string(kind)
}
