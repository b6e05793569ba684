package dalclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Tenant string
	Action string
	Params map[string]any
}

// newTestServer records every dispatch request and answers with the given
// status and body.
func newTestServer(t *testing.T, status int, body string, calls *atomic.Int64, last *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/dal", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var env struct {
			Action string         `json:"action"`
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		if last != nil {
			last.Tenant = r.Header.Get("Tenant-ID")
			last.Action = env.Action
			last.Params = env.Params
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestNoActiveTenant(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, http.StatusOK, `null`, &calls, nil)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetItemByID(context.Background(), "users", "u1")

	assert.ErrorIs(t, err, ErrNoActiveTenant)
	assert.EqualValues(t, 0, calls.Load(), "must fail before any network traffic")
}

func TestSwitchTenant(t *testing.T) {
	var calls atomic.Int64
	var last capturedRequest
	srv := newTestServer(t, http.StatusOK, `[]`, &calls, &last)
	defer srv.Close()

	c := New(srv.URL, WithTenant("operational"))

	_, err := c.GetAllItems(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "operational", last.Tenant)

	c.SwitchTenant("audit")
	_, err = c.GetAllItems(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "audit", last.Tenant)
}

func TestGetItemByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		var calls atomic.Int64
		var last capturedRequest
		srv := newTestServer(t, http.StatusOK, `{"id":"u1","name":"Ada"}`, &calls, &last)
		defer srv.Close()

		c := New(srv.URL, WithTenant("operational"))
		rec, err := c.GetItemByID(context.Background(), "users", "u1")

		require.NoError(t, err)
		assert.Equal(t, "Ada", rec["name"])
		assert.Equal(t, "getItemById", last.Action)
		assert.Equal(t, map[string]any{"collectionName": "users", "id": "u1"}, last.Params)
	})

	t.Run("missing is nil, not an error", func(t *testing.T) {
		var calls atomic.Int64
		srv := newTestServer(t, http.StatusOK, `null`, &calls, nil)
		defer srv.Close()

		c := New(srv.URL, WithTenant("operational"))
		rec, err := c.GetItemByID(context.Background(), "users", "nope")

		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestAddItem(t *testing.T) {
	var calls atomic.Int64
	var last capturedRequest
	srv := newTestServer(t, http.StatusCreated, `{"id":"doc-42"}`, &calls, &last)
	defer srv.Close()

	c := New(srv.URL, WithTenant("bizData"))
	id, err := c.AddItem(context.Background(), "notes", map[string]any{"title": "hello"})

	require.NoError(t, err)
	assert.Equal(t, "doc-42", id)
	assert.Equal(t, "addItem", last.Action)
	assert.Equal(t, map[string]any{"title": "hello"}, last.Params["data"])
}

func TestSetItem(t *testing.T) {
	var calls atomic.Int64
	var last capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"id":"u1"}`, &calls, &last)
	defer srv.Close()

	c := New(srv.URL, WithTenant("operational"))
	err := c.SetItem(context.Background(), "users", "u1", map[string]any{"name": "Ada"}, true)

	require.NoError(t, err)
	assert.Equal(t, "setItem", last.Action)
	assert.Equal(t, true, last.Params["merge"])
	assert.Equal(t, "u1", last.Params["id"])
}

func TestUpdateItem(t *testing.T) {
	var calls atomic.Int64
	var last capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"id":"u1"}`, &calls, &last)
	defer srv.Close()

	c := New(srv.URL, WithTenant("operational"))
	err := c.UpdateItem(context.Background(), "users", "u1", map[string]any{"name": "Grace"})

	require.NoError(t, err)
	assert.Equal(t, "updateItem", last.Action)
	assert.Equal(t, map[string]any{"name": "Grace"}, last.Params["updateData"])
}

func TestDeleteDocument(t *testing.T) {
	var calls atomic.Int64
	var last capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"id":"u1","message":"Document deleted successfully."}`, &calls, &last)
	defer srv.Close()

	c := New(srv.URL, WithTenant("operational"))
	err := c.DeleteDocument(context.Background(), "users", "u1")

	require.NoError(t, err)
	assert.Equal(t, "deleteDocument", last.Action)
}

func TestTouchLastModified(t *testing.T) {
	var calls atomic.Int64
	var last capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"id":"u1"}`, &calls, &last)
	defer srv.Close()

	c := New(srv.URL, WithTenant("operational"))
	err := c.TouchLastModified(context.Background(), "users", "u1")

	require.NoError(t, err)
	assert.Equal(t, "updateItem", last.Action)

	patch, ok := last.Params["updateData"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, patch, "lastModified")
	assert.Len(t, patch, 1)
}

func TestAPIError(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, http.StatusBadRequest,
		`{"request_id":"r1","error":{"code":"BAD_REQUEST","message":"Unknown action: frobnicate"}}`, &calls, nil)
	defer srv.Close()

	c := New(srv.URL, WithTenant("operational"))
	_, err := c.GetAllItems(context.Background(), "users")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	assert.Equal(t, "Unknown action: frobnicate", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "BAD_REQUEST")
}

func TestNon2xxIsAnError(t *testing.T) {
	// A redirect is not success: anything outside 2xx must surface as a
	// typed failure, never be decoded as a result.
	var calls atomic.Int64
	srv := newTestServer(t, http.StatusTemporaryRedirect, ``, &calls, nil)
	defer srv.Close()

	hc := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c := New(srv.URL, WithTenant("operational"), WithHTTPClient(hc))
	rec, err := c.GetItemByID(context.Background(), "users", "u1")

	assert.Nil(t, rec)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTemporaryRedirect, apiErr.Status)
	assert.Equal(t, "Temporary Redirect", apiErr.Message)
}

func TestAPIErrorUnparsableBody(t *testing.T) {
	var calls atomic.Int64
	srv := newTestServer(t, http.StatusBadGateway, `upstream says no`, &calls, nil)
	defer srv.Close()

	c := New(srv.URL, WithTenant("operational"))
	_, err := c.GetAllItems(context.Background(), "users")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
