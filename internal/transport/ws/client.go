// Package ws implements the alternate push transport over WebSocket,
// for deployments where intermediaries buffer or break SSE streams.
// The wire payload of each text message is identical to the data
// payload of an SSE notification event.
package ws

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/homepoint/crm-notify/internal/transport"
)

// TokenProvider supplies the bearer token attached to the dial request.
type TokenProvider func() string

// Client is a WebSocket push transport.
type Client struct {
	*transport.Runner

	url    string
	token  TokenProvider
	dialer *websocket.Dialer
}

// New creates a WebSocket client for rawURL. http(s) schemes are
// rewritten to ws(s) so the same config value works for both
// transports.
func New(rawURL string, token TokenProvider, handlers transport.Handlers, opts transport.Options) *Client {
	c := &Client{
		url:   toWebsocketURL(rawURL),
		token: token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
	c.Runner = transport.NewRunner(c.dial, handlers, opts)
	return c
}

func (c *Client) dial() (transport.Stream, error) {
	header := http.Header{}
	if tok := c.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, resp, err := c.dialer.Dial(c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &stream{conn: conn}, nil
}

type stream struct {
	conn *websocket.Conn
}

// Next returns the next text message. Binary and control frames are
// skipped; gorilla handles ping/pong internally.
func (s *stream) Next() ([]byte, error) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (s *stream) Close() error {
	return s.conn.Close()
}

func toWebsocketURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String()
}

var _ transport.Transport = (*Client)(nil)
