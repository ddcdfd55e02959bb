package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-research/internal/channel"
	"github.com/zhouzirui/z-research/internal/service/ai"
)

type scriptedSource struct {
	msgs []string
	err  error

	mu       sync.Mutex
	question string
}

func (s *scriptedSource) asked() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question
}

func (s *scriptedSource) Stream(ctx context.Context, question string, emit ai.Emit) error {
	s.mu.Lock()
	s.question = question
	s.mu.Unlock()
	for _, m := range s.msgs {
		if err := emit(m); err != nil {
			return err
		}
	}
	return s.err
}

func newServer(t *testing.T, src ai.Source) *httptest.Server {
	t.Helper()
	h := New(src, 0, zerolog.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("/api/research", h.Research)
	mux.HandleFunc("/api/demo", h.Demo)
	mux.HandleFunc("/ws", h.WebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestResearchStreamsMessagesVerbatim(t *testing.T) {
	src := &scriptedSource{msgs: []string{"planning\n", "<essay>do", "ne</essay>"}}
	srv := newServer(t, src)

	resp, err := http.Get(srv.URL + "/api/research?question=" + "why+is+the+sky+blue")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "planning\n<essay>done</essay>", string(body))
	assert.Equal(t, "why is the sky blue", src.asked())
}

func TestResearchRequiresQuestion(t *testing.T) {
	srv := newServer(t, &scriptedSource{})

	resp, err := http.Get(srv.URL + "/api/research?question=%20")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResearchReportsSourceFailureInline(t *testing.T) {
	srv := newServer(t, &scriptedSource{msgs: []string{"step"}, err: errors.New("search offline")})

	resp, err := http.Get(srv.URL + "/api/research?question=q")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "step\n❌ Research failed: search offline\n", string(body))
}

func TestDemoStreamsWords(t *testing.T) {
	srv := newServer(t, &scriptedSource{})

	resp, err := http.Get(srv.URL + "/api/demo?msg=hi")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "Pretend this is"))
	assert.True(t, strings.HasSuffix(string(body), "impressive. "))
}

func TestWebSocketStreamsThenClosesNormally(t *testing.T) {
	src := &scriptedSource{msgs: []string{"one\n", "two"}}
	srv := newServer(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := channel.NewWebSocket("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws").Dial(ctx)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Send("tides"))

	var got strings.Builder
	for {
		chunk, err := conn.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got.WriteString(chunk)
	}
	assert.Equal(t, "one\ntwo", got.String())
	assert.Equal(t, "tides", src.asked())
}

func TestWebSocketRejectsMissingQuestion(t *testing.T) {
	srv := newServer(t, &scriptedSource{})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(channel.Request{Question: "  "}))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestWebSocketSourceFailureIsAbnormalClose(t *testing.T) {
	srv := newServer(t, &scriptedSource{msgs: []string{"partial"}, err: errors.New("model down")})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(channel.Request{Question: "q"}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "partial", string(data))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}
