package channel

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// WebSocket dials a websocket endpoint. The handshake is the channel-open
// acknowledgment; no read deadline is applied afterwards, the remote side
// decides when the channel ends.
type WebSocket struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
}

// NewWebSocket returns a websocket transport for url.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		URL: url,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 30 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		},
	}
}

// Dial performs the websocket handshake.
func (t *WebSocket) Dial(ctx context.Context) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, t.URL, t.Header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "websocket dial %s: status %d", t.URL, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "websocket dial %s", t.URL)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(question string) error {
	if err := c.conn.WriteJSON(Request{Question: question}); err != nil {
		return errors.Wrap(err, "write request")
	}
	return nil
}

func (c *wsConn) Recv() (string, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", errors.Wrap(err, "read chunk")
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		return string(data), nil
	}
}

func (c *wsConn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
