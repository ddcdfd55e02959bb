// Package channel provides the duplex and chunked-HTTP connections a
// streaming session reads from.
package channel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Transport opens channels to a streaming endpoint.
type Transport interface {
	// Dial returns once the channel is open and ready for the request payload.
	Dial(ctx context.Context) (Conn, error)
}

// Conn is one open channel. Send is called exactly once, before any Recv.
// Recv returns io.EOF when the remote side closes the channel normally.
type Conn interface {
	Send(question string) error
	Recv() (string, error)
	Close() error
}

// Request is the payload sent once the channel is open.
type Request struct {
	Question string `json:"question"`
}

// Kind names a transport implementation.
type Kind string

const (
	KindWebSocket Kind = "ws"
	KindHTTP      Kind = "http"
)

// New builds the transport for endpoint. An empty kind is derived from the
// endpoint scheme: ws/wss select the websocket transport, http/https the
// chunked-HTTP one.
func New(kind Kind, endpoint string) (Transport, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	if kind == "" {
		switch strings.ToLower(parsed.Scheme) {
		case "ws", "wss":
			kind = KindWebSocket
		case "http", "https":
			kind = KindHTTP
		default:
			return nil, fmt.Errorf("unsupported endpoint scheme %q", parsed.Scheme)
		}
	}

	switch kind {
	case KindWebSocket:
		return NewWebSocket(endpoint), nil
	case KindHTTP:
		return NewHTTP(endpoint), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}
