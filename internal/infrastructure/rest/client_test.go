package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepoint/crm-notify/internal/domain"
	"github.com/homepoint/crm-notify/internal/infrastructure/rest"
)

func newClient(url string) *rest.Client {
	return rest.New(url, func() string { return "tok-123" }, 2*time.Second)
}

func TestListDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		assert.Equal(t, "unread", r.URL.Query().Get("filter"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {
				"content": [{"id":3,"receiverId":1,"type":"WARNING","content":"price cut","isRead":false,"createdAt":"2026-08-27T10:00:00Z"}],
				"pagination": {"currentPage":2,"totalPages":5,"totalElements":42,"size":10}
			}
		}`))
	}))
	defer server.Close()

	page, err := newClient(server.URL).List(context.Background(), domain.FilterUnread, 2, 10)

	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, int64(3), page.Content[0].ID)
	assert.Equal(t, domain.CategoryWarning, page.Content[0].Category)
	assert.Equal(t, 42, page.Pagination.TotalElements)
}

func TestListOmitsFilterForAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("filter"))
		w.Write([]byte(`{"success":true,"data":{"content":[],"pagination":{}}}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).List(context.Background(), domain.FilterAll, 1, 20)
	require.NoError(t, err)
}

func TestFailureEnvelopeBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"error":"not your notification"}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).MarkRead(context.Background(), []int64{9}, false)

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not your notification", apiErr.Message)
	assert.Nil(t, apiErr.Cause)
}

func TestTransportFailureIsContained(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	_, err := newClient(server.URL).Unread(context.Background())

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.NotNil(t, apiErr.Cause)
}

func TestMalformedEnvelopeIsContained(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Delete(context.Background(), nil, true)

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestMutationRequestBody(t *testing.T) {
	var got domain.MutationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/notifications/delete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"data":{"notificationIds":[1]}}`))
	}))
	defer server.Close()

	result, err := newClient(server.URL).Delete(context.Background(), []int64{1, 2}, false)

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got.NotificationIDs)
	assert.False(t, got.IsAll)
	assert.Equal(t, []int64{1}, result.NotificationIDs)
}

func TestErrorMessageFallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).MarkUnread(context.Background(), nil, true)

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "502")
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
