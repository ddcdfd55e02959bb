// Package session drives one streaming channel from open to close and turns
// its chunks into render events.
package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-research/internal/channel"
	"github.com/zhouzirui/z-research/internal/render"
)

// ChunkEvent is emitted for every non-empty chunk, in wire order.
type ChunkEvent struct {
	MessageID string
	Seq       int
	Chunk     string
	Text      string // everything received so far
	Markup    string // render of Text in full
}

// FinalizedEvent is emitted exactly once, when the session reaches closed or
// errored.
type FinalizedEvent struct {
	MessageID string
	FinalText string
	Markup    string
	State     State
	Err       error
}

// Listener receives session events. Calls come from the session goroutine,
// one at a time, never overlapping.
type Listener interface {
	ChunkReceived(ChunkEvent)
	Finalized(FinalizedEvent)
}

type nopListener struct{}

func (nopListener) ChunkReceived(ChunkEvent) {}
func (nopListener) Finalized(FinalizedEvent) {}

// Config wires a session to its collaborators.
type Config struct {
	Transport channel.Transport
	Renderer  render.Renderer
	Listener  Listener
	Logger    zerolog.Logger
}

// Session is one streaming turn. It is not reusable: once closed or errored
// it is discarded.
type Session struct {
	messageID string
	transport channel.Transport
	renderer  render.Renderer
	listener  Listener
	logger    zerolog.Logger

	mu     sync.Mutex
	state  State
	text   strings.Builder
	chunks int
	err    error
	done   chan struct{}
}

// New returns an idle session streaming into messageID.
func New(messageID string, cfg Config) *Session {
	s := &Session{
		messageID: messageID,
		transport: cfg.Transport,
		renderer:  cfg.Renderer,
		listener:  cfg.Listener,
		logger:    cfg.Logger.With().Str("component", "session").Str("message_id", messageID).Logger(),
		done:      make(chan struct{}),
	}
	if s.renderer == nil {
		s.renderer = render.NewMarkdown()
	}
	if s.listener == nil {
		s.listener = nopListener{}
	}
	return s
}

// Open creates a session and starts it with question.
func Open(ctx context.Context, messageID, question string, cfg Config) (*Session, error) {
	s := New(messageID, cfg)
	if err := s.Start(ctx, question); err != nil {
		return nil, err
	}
	return s, nil
}

// Start moves the session from idle to connecting and runs the channel in
// its own goroutine. Cancelling ctx closes the channel and errors the session.
func (s *Session) Start(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	if s.transport == nil {
		return ErrNoTransport
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateConnecting
	s.mu.Unlock()

	go s.run(ctx, question)
	return nil
}

func (s *Session) run(ctx context.Context, question string) {
	conn, err := s.transport.Dial(ctx)
	if err != nil {
		s.finish(StateErrored, &ChannelOpenError{Err: err})
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	state, err := s.pump(ctx, conn, question)

	stop()
	_ = conn.Close()
	s.finish(state, err)
}

// pump sends the question and reads chunks until the channel ends. It
// returns the terminal state to enter.
func (s *Session) pump(ctx context.Context, conn channel.Conn, question string) (State, error) {
	s.setState(StateOpen)
	s.logger.Debug().Msg("session: channel open")

	if err := conn.Send(question); err != nil {
		return StateErrored, s.transportError(ctx, err)
	}

	for {
		chunk, err := conn.Recv()
		if errors.Is(err, io.EOF) {
			return StateClosed, nil
		}
		if err != nil {
			return StateErrored, s.transportError(ctx, err)
		}
		if chunk == "" {
			continue
		}
		s.deliver(chunk)
	}
}

func (s *Session) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &TransportError{Err: ctxErr}
	}
	return &TransportError{Err: err}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) deliver(chunk string) {
	s.mu.Lock()
	s.text.WriteString(chunk)
	s.chunks++
	s.state = StateStreaming
	event := ChunkEvent{
		MessageID: s.messageID,
		Seq:       s.chunks,
		Chunk:     chunk,
		Text:      s.text.String(),
	}
	s.mu.Unlock()

	event.Markup = s.renderer.Render(event.Text)
	s.listener.ChunkReceived(event)
}

func (s *Session) finish(state State, err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.err = err
	text := s.text.String()
	chunks := s.chunks
	s.mu.Unlock()

	markup := s.renderer.Render(text)
	if err != nil {
		markup += render.ErrorNotice(err.Error())
		s.logger.Warn().Err(err).Int("chunks", chunks).Msg("session: errored")
	} else {
		s.logger.Info().Int("chunks", chunks).Int("bytes", len(text)).Msg("session: closed")
	}

	s.listener.Finalized(FinalizedEvent{
		MessageID: s.messageID,
		FinalText: text,
		Markup:    markup,
		State:     state,
		Err:       err,
	})
	close(s.done)
}

// MessageID returns the bot message this session streams into.
func (s *Session) MessageID() string { return s.messageID }

// State returns the current channel state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the text accumulated so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Err returns the failure that errored the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed after the Finalized event has been delivered.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session is finalized or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
