// Package turn orchestrates user turns: it records messages in the store and
// streams each bot reply through one session at a time.
package turn

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-research/internal/channel"
	"github.com/zhouzirui/z-research/internal/model/chat"
	"github.com/zhouzirui/z-research/internal/render"
	chatservice "github.com/zhouzirui/z-research/internal/service/chat"
	"github.com/zhouzirui/z-research/internal/session"
)

var (
	ErrEmptyInput     = errors.New("input is empty")
	ErrTurnInProgress = errors.New("a turn is already streaming")
)

// Affordances are the post-processing controls switched on for a finalized
// bot message.
type Affordances interface {
	EnableCopy(message chat.Message)
	EnableExport(message chat.Message)
}

type nopAffordances struct{}

func (nopAffordances) EnableCopy(chat.Message)   {}
func (nopAffordances) EnableExport(chat.Message) {}

// Option customises a Controller.
type Option func(*Controller)

// WithAffordances sets the collaborator notified when a reply is finalized.
func WithAffordances(a Affordances) Option {
	return func(c *Controller) {
		if a != nil {
			c.affordances = a
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithChunkHook registers a callback run after each chunk has been stored.
func WithChunkHook(hook func(session.ChunkEvent)) Option {
	return func(c *Controller) {
		c.onChunk = hook
	}
}

// Controller owns a message store and at most one live session.
type Controller struct {
	store       *chatservice.Store
	transport   channel.Transport
	renderer    render.Renderer
	affordances Affordances
	logger      zerolog.Logger
	onChunk     func(session.ChunkEvent)

	mu     sync.Mutex
	active *session.Session
}

// New returns a controller streaming through transport and rendering with
// renderer.
func New(store *chatservice.Store, transport channel.Transport, renderer render.Renderer, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		transport:   transport,
		renderer:    renderer,
		affordances: nopAffordances{},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.renderer == nil {
		c.renderer = render.NewMarkdown()
	}
	c.logger = c.logger.With().Str("component", "turn").Logger()
	return c
}

// Submit starts a turn for text. Whitespace-only input is rejected with
// ErrEmptyInput and leaves the store untouched. A submit while another turn
// is still streaming is rejected with ErrTurnInProgress; turns are not
// queued.
func (c *Controller) Submit(ctx context.Context, text string) (*session.Session, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrTurnInProgress
	}

	c.store.Append(chat.Message{
		Sender:         chat.SenderUser,
		RawText:        text,
		RenderedMarkup: render.Escape(text),
		Status:         chat.StatusComplete,
	})
	botID := c.store.Append(chat.Message{
		Sender: chat.SenderBot,
		Status: chat.StatusPending,
	})

	sess := session.New(botID, session.Config{
		Transport: c.transport,
		Renderer:  c.renderer,
		Listener:  &turnListener{controller: c, messageID: botID},
		Logger:    c.logger,
	})
	c.active = sess

	if err := sess.Start(ctx, text); err != nil {
		c.active = nil
		c.logger.Error().Err(err).Str("message_id", botID).Msg("turn: session did not start")
		status := chat.StatusErrored
		markup := render.ErrorNotice(err.Error())
		_ = c.store.Update(botID, chat.Patch{RenderedMarkup: &markup, Status: &status})
		return nil, err
	}

	c.logger.Debug().Str("message_id", botID).Msg("turn: started")
	return sess, nil
}

// Active returns the streaming session, or nil when idle.
func (c *Controller) Active() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Wait blocks until the active turn, if any, has been finalized.
func (c *Controller) Wait(ctx context.Context) error {
	sess := c.Active()
	if sess == nil {
		return nil
	}
	return sess.Wait(ctx)
}

// Messages returns the conversation in display order.
func (c *Controller) Messages() []chat.Message {
	return c.store.All()
}

// Store exposes the underlying message store.
func (c *Controller) Store() *chatservice.Store {
	return c.store
}

func (c *Controller) release(messageID string) {
	c.mu.Lock()
	if c.active != nil && c.active.MessageID() == messageID {
		c.active = nil
	}
	c.mu.Unlock()
}

// turnListener applies session events of one turn to the store. A store
// failure ends the turn's bookkeeping but never the process.
type turnListener struct {
	controller *Controller
	messageID  string
	broken     bool
}

func (l *turnListener) ChunkReceived(ev session.ChunkEvent) {
	if l.broken {
		return
	}
	c := l.controller
	if err := c.store.Update(l.messageID, chat.ContentPatch(ev.Text, ev.Markup, chat.StatusStreaming)); err != nil {
		l.broken = true
		c.logger.Error().Err(err).Str("message_id", l.messageID).Int("seq", ev.Seq).Msg("turn: chunk update rejected")
		return
	}
	if c.onChunk != nil {
		c.onChunk(ev)
	}
}

func (l *turnListener) Finalized(ev session.FinalizedEvent) {
	c := l.controller
	defer c.release(l.messageID)

	if l.broken {
		c.logger.Warn().Str("message_id", l.messageID).Msg("turn: finalized after store failure, message left as is")
		return
	}

	status := chat.StatusComplete
	if ev.State == session.StateErrored {
		status = chat.StatusErrored
	}
	if err := c.store.Update(l.messageID, chat.ContentPatch(ev.FinalText, ev.Markup, status)); err != nil {
		c.logger.Error().Err(err).Str("message_id", l.messageID).Msg("turn: final update rejected")
		return
	}

	message, err := c.store.Get(l.messageID)
	if err != nil {
		c.logger.Error().Err(err).Str("message_id", l.messageID).Msg("turn: finalized message vanished")
		return
	}
	c.affordances.EnableCopy(message)
	c.affordances.EnableExport(message)
	c.logger.Info().Str("message_id", l.messageID).Str("status", string(status)).Msg("turn: finalized")
}
