// Package desk holds the per-message actions the client offers once a bot
// turn has been finalized: copying a reply or one of its code blocks, and
// exporting the conversation's report.
package desk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-research/internal/export"
	"github.com/zhouzirui/z-research/internal/model/chat"
	"github.com/zhouzirui/z-research/internal/render"
)

var (
	ErrNotCopyable = errors.New("no finalized reply to copy")
	ErrNoCodeBlock = errors.New("no such code block")
	ErrNotExported = errors.New("export is not enabled yet")
)

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SystemClipboard reports whether a clipboard utility is usable here.
func SystemClipboard() (Clipboard, bool) {
	return systemClipboard{}, !clipboard.Unsupported
}

type Option func(*Desk)

func WithClipboard(c Clipboard) Option {
	return func(d *Desk) {
		if c != nil {
			d.clipboard = c
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Desk) {
		d.logger = logger
	}
}

// Desk records which finalized bot messages can be copied or exported.
type Desk struct {
	mu         sync.Mutex
	copyable   map[string]chat.Message
	order      []string
	exportable map[string]bool

	clipboard Clipboard
	extractor *export.Extractor
	exporter  *export.Exporter
	exportDir string
	logger    zerolog.Logger
}

// Exported describes a saved report.
type Exported struct {
	Path string
	Kind export.Kind
}

func New(extractor *export.Extractor, exporter *export.Exporter, exportDir string, opts ...Option) *Desk {
	d := &Desk{
		copyable:   make(map[string]chat.Message),
		exportable: make(map[string]bool),
		clipboard:  systemClipboard{},
		extractor:  extractor,
		exporter:   exporter,
		exportDir:  exportDir,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Desk) EnableCopy(m chat.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, seen := d.copyable[m.ID]; !seen {
		d.order = append(d.order, m.ID)
	}
	d.copyable[m.ID] = m
}

func (d *Desk) EnableExport(m chat.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exportable[m.ID] = true
}

// Last returns the most recently finalized bot message.
func (d *Desk) Last() (chat.Message, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.order) == 0 {
		return chat.Message{}, false
	}
	return d.copyable[d.order[len(d.order)-1]], true
}

func (d *Desk) message(id string) (chat.Message, error) {
	if id == "" {
		m, ok := d.Last()
		if !ok {
			return chat.Message{}, ErrNotCopyable
		}
		return m, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.copyable[id]
	if !ok {
		return chat.Message{}, ErrNotCopyable
	}
	return m, nil
}

// Copy puts a reply's raw text on the clipboard. An empty id means the latest
// reply.
func (d *Desk) Copy(id string) error {
	m, err := d.message(id)
	if err != nil {
		return err
	}
	if err := d.clipboard.WriteAll(m.RawText); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	d.logger.Debug().Str("message_id", m.ID).Msg("desk: copied reply")
	return nil
}

// CopyCode copies the n-th (1-based) fenced code block of a reply.
func (d *Desk) CopyCode(id string, n int) error {
	m, err := d.message(id)
	if err != nil {
		return err
	}
	blocks := render.CodeBlocks(m.RawText)
	if n < 1 || n > len(blocks) {
		return fmt.Errorf("%w: %d of %d", ErrNoCodeBlock, n, len(blocks))
	}
	if err := d.clipboard.WriteAll(blocks[n-1].Code); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// Export extracts the report from messages and saves it. ok is false when
// there is nothing to export.
func (d *Desk) Export(messages []chat.Message) (out Exported, ok bool, err error) {
	d.mu.Lock()
	enabled := len(d.exportable) > 0
	d.mu.Unlock()
	if !enabled {
		return Exported{}, false, ErrNotExported
	}

	text := d.extractor.Extract(messages)
	if text == "" {
		return Exported{}, false, nil
	}

	artifact := d.exporter.Export(text)
	path, err := export.Save(d.exportDir, artifact)
	if err != nil {
		return Exported{}, false, err
	}
	d.logger.Info().Str("path", path).Str("kind", string(artifact.Kind)).Msg("desk: report exported")
	return Exported{Path: path, Kind: artifact.Kind}, true, nil
}
