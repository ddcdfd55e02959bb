package channel

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, conn Conn) (string, error) {
	t.Helper()
	var sb strings.Builder
	for {
		chunk, err := conn.Recv()
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNewSelectsTransportFromScheme(t *testing.T) {
	tr, err := New("", "ws://localhost:8080/ws")
	require.NoError(t, err)
	assert.IsType(t, &WebSocket{}, tr)

	tr, err = New("", "https://example.com/api/research")
	require.NoError(t, err)
	assert.IsType(t, &HTTP{}, tr)

	tr, err = New(KindHTTP, "ws://localhost/ws")
	require.NoError(t, err)
	assert.IsType(t, &HTTP{}, tr)

	_, err = New("", "ftp://example.com")
	require.Error(t, err)
	_, err = New("", "not a url")
	require.Error(t, err)
	_, err = New("carrier-pigeon", "http://example.com")
	require.Error(t, err)
}

func TestWebSocketSendsQuestionAndStreamsUntilClose(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		received <- req.Question
		for _, chunk := range []string{"Hi", " there", "!"} {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(chunk))
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	conn, err := NewWebSocket(wsURL(srv)).Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send("hello"))
	assert.Equal(t, "hello", <-received)

	text, err := drain(t, conn)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "Hi there!", text)
}

func TestWebSocketAbnormalCloseIsAnError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var req Request
		_ = conn.ReadJSON(&req)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("partial"))
		_ = conn.UnderlyingConn().Close()
	}))
	defer srv.Close()

	conn, err := NewWebSocket(wsURL(srv)).Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Send("q"))

	text, err := drain(t, conn)
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
	assert.Equal(t, "partial", text)
}

func TestWebSocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewWebSocket(wsURL(srv)).Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPStreamsBodyWithQuestionParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/plain")
		question := r.URL.Query().Get("question")
		_, _ = io.WriteString(w, "Q: "+question+"\n")
		flusher.Flush()
		_, _ = io.WriteString(w, "done")
	}))
	defer srv.Close()

	conn, err := NewHTTP(srv.URL + "/api/research?lang=en").Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send("what & why?"))
	text, err := drain(t, conn)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "Q: what & why?\ndone", text)
}

func TestHTTPRejectsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	conn, err := NewHTTP(srv.URL).Dial(context.Background())
	require.NoError(t, err)
	err = conn.Send("q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPRecvBeforeSend(t *testing.T) {
	conn, err := NewHTTP("http://example.invalid").Dial(context.Background())
	require.NoError(t, err)
	_, err = conn.Recv()
	require.Error(t, err)
}

type trickleReader struct {
	parts [][]byte
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if len(r.parts) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.parts[0])
	r.parts = r.parts[1:]
	return n, nil
}

func TestHTTPRecvKeepsRunesWhole(t *testing.T) {
	word := []byte("héllo→世界")
	// split inside the two-byte é and the three-byte 世
	parts := [][]byte{word[:2], word[2:10], word[10:]}
	conn := &httpConn{
		body: io.NopCloser(&trickleReader{parts: parts}),
		buf:  make([]byte, readBufferSize),
	}

	var chunks []string
	for {
		chunk, err := conn.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
	for _, chunk := range chunks {
		assert.True(t, utf8ValidString(chunk), "chunk %q split a rune", chunk)
	}
	assert.Equal(t, string(word), strings.Join(chunks, ""))
}

func utf8ValidString(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}

func TestCompletePrefix(t *testing.T) {
	assert.Equal(t, 3, completePrefix([]byte("abc")))
	assert.Equal(t, 1, completePrefix([]byte{'a', 0xE4, 0xB8}))
	assert.Equal(t, 4, completePrefix([]byte{'a', 0xE4, 0xB8, 0x96}))
	assert.Equal(t, 0, completePrefix([]byte{0xC3}))
	assert.Equal(t, 0, completePrefix(nil))
}
