package stream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/z-research/internal/channel"
	"github.com/zhouzirui/z-research/internal/service/ai"
	"github.com/zhouzirui/z-research/pkg/utils"
)

const (
	requestTimeout = 30 * time.Second
	closeGrace     = 5 * time.Second
)

var errPeerClosed = errors.New("peer closed")

// Handler serves research streams over chunked HTTP and websocket.
type Handler struct {
	source    ai.Source
	demoDelay time.Duration
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
}

func New(source ai.Source, demoDelay time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		source:    source,
		demoDelay: demoDelay,
		logger:    logger.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Research streams the source's messages as chunked text/plain, verbatim.
func (h *Handler) Research(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.URL.Query().Get("question"))
	if question == "" {
		utils.RespondError(w, http.StatusBadRequest, "question query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupTextStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	h.logger.Info().Str("question", question).Msg("research stream opened")
	err := h.source.Stream(r.Context(), question, func(msg string) error {
		return utils.WriteChunk(w, flusher, msg)
	})
	if err != nil && r.Context().Err() == nil {
		h.logger.Warn().Err(err).Msg("research stream failed")
		_ = utils.WriteChunk(w, flusher, "\n❌ Research failed: "+err.Error()+"\n")
		return
	}
	h.logger.Info().Msg("research stream closed")
}

// Demo streams the canned demo sentence word by word.
func (h *Handler) Demo(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupTextStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	err := ai.DemoTokens(r.Context(), h.demoDelay, func(token string) error {
		return utils.WriteChunk(w, flusher, token)
	})
	if err != nil && r.Context().Err() == nil {
		h.logger.Warn().Err(err).Msg("demo stream failed")
	}
}

// WebSocket reads one question, streams text frames and ends with a normal
// close.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	var req channel.Request
	if err := conn.ReadJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("websocket: bad request")
		closeWith(conn, websocket.CloseUnsupportedData, "expected {\"question\": ...}")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		closeWith(conn, websocket.ClosePolicyViolation, "question is required")
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	h.logger.Info().Str("question", question).Msg("websocket stream opened")

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return readUntilClosed(conn)
	})
	g.Go(func() error {
		return h.pushFrames(ctx, conn, question)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errPeerClosed) {
		h.logger.Warn().Err(err).Msg("websocket stream ended with error")
		return
	}
	h.logger.Info().Msg("websocket stream closed")
}

func (h *Handler) pushFrames(ctx context.Context, conn *websocket.Conn, question string) error {
	// Wait for the client's close reply, but not forever.
	defer func() {
		_ = conn.SetReadDeadline(time.Now().Add(closeGrace))
	}()

	err := h.source.Stream(ctx, question, func(msg string) error {
		return conn.WriteMessage(websocket.TextMessage, []byte(msg))
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		closeWith(conn, websocket.CloseInternalServerErr, "research failed")
		return errors.Wrap(err, "research source")
	}

	closeWith(conn, websocket.CloseNormalClosure, "")
	return nil
}

// readUntilClosed drains the client side so close and ping frames are
// processed. It always returns an error, which cancels the writer.
func readUntilClosed(conn *websocket.Conn) error {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errPeerClosed
			}
			return errors.Wrap(errPeerClosed, err.Error())
		}
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
