// Package sse implements the primary push transport: a Server-Sent
// Events client for the /notifications/stream endpoint.
package sse

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/homepoint/crm-notify/internal/transport"
)

// TokenProvider supplies the bearer token attached to the stream request.
type TokenProvider func() string

// Client is an SSE push transport.
type Client struct {
	*transport.Runner

	url        string
	token      TokenProvider
	httpClient *http.Client

	mu          sync.Mutex
	lastEventID string
}

// New creates an SSE client for url. The handlers receive the data
// payload of each notification event; protocol frames (comments,
// server hello events) never reach OnMessage.
func New(url string, token TokenProvider, handlers transport.Handlers, opts transport.Options) *Client {
	c := &Client{
		url:   url,
		token: token,
		// No http.Client.Timeout: the stream is long-lived by design.
		// Only the connection setup is bounded.
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
			},
		},
	}
	c.Runner = transport.NewRunner(c.dial, handlers, opts)
	return c
}

func (c *Client) dial() (transport.Stream, error) {
	req, err := http.NewRequest(http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	c.mu.Lock()
	if c.lastEventID != "" {
		req.Header.Set("Last-Event-ID", c.lastEventID)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("sse: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("sse: unexpected content type %q", ct)
	}

	return &stream{body: resp.Body, scanner: bufio.NewScanner(resp.Body), client: c}, nil
}

// stream reads one SSE response body frame by frame.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	client  *Client
}

// Next assembles fields until a blank line completes an event, then
// returns its data payload. Events named anything other than
// "notification" (for example the server's "connected" hello) are
// skipped, as are comment lines.
func (s *stream) Next() ([]byte, error) {
	var event string
	var data []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			// Dispatch boundary.
			if len(data) == 0 {
				event = ""
				continue
			}
			payload := strings.Join(data, "\n")
			name := event
			event, data = "", nil
			if name != "" && name != "notification" {
				continue
			}
			return []byte(payload), nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		case "id":
			s.client.setLastEventID(value)
		case "retry":
			// Server-suggested retry intervals are ignored; the
			// reconnect policy is configuration-driven.
		}
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *stream) Close() error {
	return s.body.Close()
}

func (c *Client) setLastEventID(id string) {
	c.mu.Lock()
	c.lastEventID = id
	c.mu.Unlock()
}

var _ transport.Transport = (*Client)(nil)
