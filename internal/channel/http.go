package channel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const readBufferSize = 4096

// HTTP streams a chunked text/plain response. The question travels in the
// request line, so the channel counts as open as soon as the request is
// prepared and a refused request surfaces as a transport failure.
type HTTP struct {
	URL    string
	Client *http.Client
}

// NewHTTP returns a chunked-HTTP transport for endpoint.
func NewHTTP(endpoint string) *HTTP {
	return &HTTP{URL: endpoint, Client: &http.Client{}}
}

// Dial validates the endpoint and returns a channel bound to ctx.
func (t *HTTP) Dial(ctx context.Context) (Conn, error) {
	target, err := url.Parse(t.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse endpoint %s", t.URL)
	}
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &httpConn{ctx: ctx, client: client, target: target}, nil
}

type httpConn struct {
	ctx    context.Context
	client *http.Client
	target *url.URL
	body   io.ReadCloser
	buf    []byte
	carry  []byte
}

func (c *httpConn) Send(question string) error {
	if c.body != nil {
		return errors.New("request already sent")
	}

	target := *c.target
	query := target.Query()
	query.Set("question", question)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	c.body = resp.Body
	c.buf = make([]byte, readBufferSize)
	return nil
}

// Recv returns the next slice of the body. A multi-byte rune split by the
// network is held back until the rest of it arrives.
func (c *httpConn) Recv() (string, error) {
	if c.body == nil {
		return "", errors.New("request not sent")
	}

	for {
		n, err := c.body.Read(c.buf)
		if n > 0 {
			data := append(c.carry, c.buf[:n]...)
			cut := completePrefix(data)
			c.carry = append([]byte(nil), data[cut:]...)
			if cut > 0 {
				return string(data[:cut]), nil
			}
		}
		if err == io.EOF {
			if len(c.carry) > 0 {
				rest := string(c.carry)
				c.carry = nil
				return rest, nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", errors.Wrap(err, "read chunk")
		}
	}
}

func (c *httpConn) Close() error {
	if c.body == nil {
		return nil
	}
	return c.body.Close()
}

// completePrefix returns the length of the longest prefix of data that does
// not end inside a multi-byte rune.
func completePrefix(data []byte) int {
	end := len(data)
	for start := end - 1; start >= 0 && start >= end-utf8.UTFMax; start-- {
		if !utf8.RuneStart(data[start]) {
			continue
		}
		if utf8.FullRune(data[start:end]) {
			return end
		}
		return start
	}
	return end
}
