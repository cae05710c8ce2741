package stubserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepoint/crm-notify/internal/domain"
	"github.com/homepoint/crm-notify/internal/stubserver"
)

func newServer(t *testing.T) (*httptest.Server, *stubserver.State) {
	t.Helper()
	state := stubserver.NewState()
	handler := stubserver.NewHandler(state, stubserver.NewHub())
	server := httptest.NewServer(stubserver.NewRouter(handler))
	t.Cleanup(server.Close)
	return server, state
}

func call(t *testing.T, method, url string, body any) domain.Envelope {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer 1")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env domain.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestListPaginates(t *testing.T) {
	server, state := newServer(t)
	for i := 0; i < 5; i++ {
		state.Insert(1, domain.CategoryInfo, "n", "")
	}
	state.Insert(2, domain.CategoryInfo, "other receiver", "")

	env := call(t, http.MethodGet, server.URL+"/notifications?page=2&size=2", nil)
	require.True(t, env.Success)

	var page domain.RecordPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Content, 2)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, 5, page.Pagination.TotalElements)
}

func TestMarkReadReturnsAffectedIDsOnly(t *testing.T) {
	server, state := newServer(t)
	a := state.Insert(1, domain.CategoryInfo, "a", "")
	state.Insert(1, domain.CategoryInfo, "b", "")

	env := call(t, http.MethodPost, server.URL+"/notifications/mark-read", domain.MutationRequest{
		NotificationIDs: []int64{a.ID, 999},
	})
	require.True(t, env.Success)

	var result domain.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []int64{a.ID}, result.NotificationIDs)
}

func TestMarkAllReadReturnsEmptyList(t *testing.T) {
	server, state := newServer(t)
	state.Insert(1, domain.CategoryInfo, "a", "")
	state.Insert(1, domain.CategoryInfo, "b", "")

	env := call(t, http.MethodPost, server.URL+"/notifications/mark-read", domain.MutationRequest{IsAll: true})
	require.True(t, env.Success)

	var result domain.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Empty(t, result.NotificationIDs)

	unreadEnv := call(t, http.MethodGet, server.URL+"/notifications/unread", nil)
	var unread []domain.Record
	require.NoError(t, json.Unmarshal(unreadEnv.Data, &unread))
	assert.Empty(t, unread)
}

func TestDeleteScopedToReceiver(t *testing.T) {
	server, state := newServer(t)
	mine := state.Insert(1, domain.CategoryInfo, "mine", "")
	theirs := state.Insert(2, domain.CategoryInfo, "theirs", "")

	env := call(t, http.MethodPost, server.URL+"/notifications/delete", domain.MutationRequest{
		NotificationIDs: []int64{mine.ID, theirs.ID},
	})
	require.True(t, env.Success)

	var result domain.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []int64{mine.ID}, result.NotificationIDs)

	assert.Len(t, state.Unread(2), 1)
}

func TestInjectCreatesAndReturnsRecord(t *testing.T) {
	server, _ := newServer(t)

	env := call(t, http.MethodPost, server.URL+"/notifications", map[string]any{
		"receiverId": 1,
		"type":       "SUCCESS",
		"content":    "Contract signed for 'Unit 3A'.",
		"url":        "/properties/75",
	})
	require.True(t, env.Success)

	var rec domain.Record
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.NotZero(t, rec.ID)
	assert.Equal(t, domain.CategorySuccess, rec.Category)
	assert.False(t, rec.IsRead)

	listEnv := call(t, http.MethodGet, server.URL+"/notifications", nil)
	var page domain.RecordPage
	require.NoError(t, json.Unmarshal(listEnv.Data, &page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, rec.ID, page.Content[0].ID)
}

func TestMissingTokenIsRejected(t *testing.T) {
	server, _ := newServer(t)

	resp, err := http.Get(server.URL + "/notifications")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var env domain.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}
