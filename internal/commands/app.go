package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/zhouzirui/z-research/internal/channel"
	"github.com/zhouzirui/z-research/internal/config"
	"github.com/zhouzirui/z-research/internal/desk"
	"github.com/zhouzirui/z-research/internal/export"
	"github.com/zhouzirui/z-research/internal/model/chat"
	"github.com/zhouzirui/z-research/internal/render"
	chatservice "github.com/zhouzirui/z-research/internal/service/chat"
	"github.com/zhouzirui/z-research/internal/service/turn"
	"github.com/zhouzirui/z-research/internal/session"
)

// app is one client conversation: a controller, its affordances and the
// terminal it prints to.
type app struct {
	controller *turn.Controller
	desk       *desk.Desk
	extractor  *export.Extractor
	terminal   *render.Terminal
	out        io.Writer
	logger     zerolog.Logger
}

func newApp(v *viper.Viper, o *options, out, errOut io.Writer) (*app, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	logger := newLogger(errOut, "desk")

	transport, err := channel.New(channel.Kind(cfg.Client.Transport), cfg.Client.Endpoint)
	if err != nil {
		return nil, err
	}

	terminal, err := render.NewTerminal(cfg.Client.RenderStyle, cfg.Client.RenderWidth)
	if err != nil {
		return nil, err
	}

	var converter export.Converter
	if cfg.Client.ExportLineWidth > 0 {
		converter = export.NewPDF(cfg.Client.ExportLineWidth)
	}

	clip := o.clipboard
	if clip == nil {
		var ok bool
		if clip, ok = desk.SystemClipboard(); !ok {
			logger.Warn().Msg("no clipboard utility found, copy will fail")
		}
	}

	extractor := export.NewExtractor(export.DefaultMarkers())
	d := desk.New(extractor, export.New(converter, export.WithLogger(logger)), cfg.Client.ExportDir,
		desk.WithClipboard(clip), desk.WithLogger(logger))

	controller := turn.New(chatservice.NewStore(), transport, render.NewMarkdown(),
		turn.WithAffordances(d),
		turn.WithLogger(logger),
		turn.WithChunkHook(func(ev session.ChunkEvent) {
			fmt.Fprint(out, ev.Chunk)
		}),
	)

	return &app{
		controller: controller,
		desk:       d,
		extractor:  extractor,
		terminal:   terminal,
		out:        out,
		logger:     logger,
	}, nil
}

// ask runs one turn to completion and prints the outcome.
func (a *app) ask(ctx context.Context, question string) (chat.Message, error) {
	if strings.TrimSpace(question) == "" {
		return chat.Message{}, turn.ErrEmptyInput
	}
	// The label goes out before Submit: chunks are echoed from the session
	// goroutine as soon as it starts.
	fmt.Fprintln(a.out, botLabelStyle.Render("research ›"))

	sess, err := a.controller.Submit(ctx, question)
	if err != nil {
		return chat.Message{}, err
	}

	<-sess.Done()

	msg, err := a.controller.Store().Get(sess.MessageID())
	if err != nil {
		return chat.Message{}, err
	}
	fmt.Fprintln(a.out)

	if msg.Status == chat.StatusErrored {
		reason := "connection lost"
		if sess.Err() != nil {
			reason = sess.Err().Error()
		}
		fmt.Fprintln(a.out, noticeStyle.Render("⚠ Response interrupted: "+reason))
		return msg, nil
	}

	final := a.extractor.Extract([]chat.Message{msg})
	if final == "" {
		final = msg.RawText
	}
	fmt.Fprintln(a.out, a.terminal.Render(final))
	return msg, nil
}

func (a *app) copyReply() {
	if err := a.desk.Copy(""); err != nil {
		a.notice(err)
		return
	}
	a.info("reply copied to clipboard")
}

func (a *app) copyCode(n int) {
	if err := a.desk.CopyCode("", n); err != nil {
		a.notice(err)
		return
	}
	a.info(fmt.Sprintf("code block %d copied to clipboard", n))
}

func (a *app) export() {
	out, ok, err := a.desk.Export(a.controller.Messages())
	switch {
	case err != nil:
		a.notice(err)
	case !ok:
		a.info("nothing to export")
	default:
		a.info(fmt.Sprintf("exported %s report to %s", out.Kind, out.Path))
	}
}

func (a *app) history() {
	for i, m := range a.controller.Messages() {
		label := userLabelStyle.Render("you")
		if m.Sender == chat.SenderBot {
			label = botLabelStyle.Render("research")
		}
		first, _, _ := strings.Cut(strings.TrimSpace(m.RawText), "\n")
		first = truncate.StringWithTail(first, 60, "...")
		fmt.Fprintf(a.out, "%2d %s [%s] %s\n", i+1, label, m.Status, first)
	}
}

func (a *app) notice(err error) {
	fmt.Fprintln(a.out, noticeStyle.Render("✗ "+err.Error()))
}

func (a *app) info(msg string) {
	fmt.Fprintln(a.out, infoStyle.Render("✓ "+msg))
}
