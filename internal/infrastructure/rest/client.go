// Package rest implements the remote-authority client for the CRM
// notification API. Every operation returns the decoded payload or an
// *APIError; transport-level failures never leak out raw.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/homepoint/crm-notify/internal/domain"
)

// APIError is the uniform failure surfaced by every Client operation.
// It wraps both transport-level failures (Cause set) and explicit
// failure envelopes from the server (Message set from the envelope).
type APIError struct {
	Op      string
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

// TokenProvider supplies the current bearer token for outgoing requests.
// It is a function so the session can rotate tokens without rebuilding
// the client.
type TokenProvider func() string

// Client calls the notification REST API.
type Client struct {
	baseURL    string
	token      TokenProvider
	httpClient *http.Client
}

// New creates a REST client for the given base URL.
func New(baseURL string, token TokenProvider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// List fetches one page of notifications.
// filter narrows to read/unread records; FilterAll sends no filter.
func (c *Client) List(ctx context.Context, filter domain.ReadFilter, page, size int) (*domain.RecordPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if f := filter.Query(); f != "" {
		q.Set("filter", f)
	}

	var result domain.RecordPage
	if err := c.do(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &result, "list notifications"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Unread fetches every currently unread notification.
func (c *Client) Unread(ctx context.Context) ([]domain.Record, error) {
	var result []domain.Record
	if err := c.do(ctx, http.MethodGet, "/notifications/unread", nil, &result, "fetch unread"); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRead marks the given notifications as read.
// isAll applies to the receiver's whole collection regardless of ids.
func (c *Client) MarkRead(ctx context.Context, ids []int64, isAll bool) (*domain.MutationResult, error) {
	return c.mutate(ctx, "/notifications/mark-read", ids, isAll, "mark read")
}

// MarkUnread marks the given notifications as unread.
func (c *Client) MarkUnread(ctx context.Context, ids []int64, isAll bool) (*domain.MutationResult, error) {
	return c.mutate(ctx, "/notifications/mark-unread", ids, isAll, "mark unread")
}

// Delete removes the given notifications.
func (c *Client) Delete(ctx context.Context, ids []int64, isAll bool) (*domain.MutationResult, error) {
	return c.mutate(ctx, "/notifications/delete", ids, isAll, "delete notifications")
}

func (c *Client) mutate(ctx context.Context, path string, ids []int64, isAll bool, op string) (*domain.MutationResult, error) {
	body := domain.MutationRequest{NotificationIDs: ids, IsAll: isAll}
	var result domain.MutationResult
	if err := c.do(ctx, http.MethodPost, path, &body, &result, op); err != nil {
		return nil, err
	}
	return &result, nil
}

// do executes one request and decodes the uniform envelope into out.
// All failure modes collapse into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any, op string) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &APIError{Op: op, Cause: err}
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Op: op, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	var env domain.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Op: op, Cause: fmt.Errorf("decode envelope (status %d): %w", resp.StatusCode, err)}
	}

	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &APIError{Op: op, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Op: op, Cause: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}
