// Package dalclient is a small Go client for the document dispatch endpoint.
// One client talks to one gateway; the active tenant is switchable at runtime
// and applies to every subsequent call.
package dalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const tenantIDHeader = "Tenant-ID"

// ErrNoActiveTenant is returned before any network traffic when no tenant has
// been selected.
var ErrNoActiveTenant = errors.New("no active tenant selected")

// APIError is a non-2xx answer from the gateway, carrying the machine-readable
// code and the client-safe message from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dal: %d %s: %s", e.Status, e.Code, e.Message)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTenant selects the initial active tenant.
func WithTenant(id string) Option {
	return func(c *Client) { c.tenant = id }
}

// Client issues document actions against a gateway. Safe for concurrent use;
// SwitchTenant affects all goroutines sharing the client.
type Client struct {
	baseURL string
	hc      *http.Client

	mu     sync.RWMutex
	tenant string
}

// New creates a Client for the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SwitchTenant changes the active tenant for all subsequent calls.
func (c *Client) SwitchTenant(id string) {
	c.mu.Lock()
	c.tenant = id
	c.mu.Unlock()
}

// Tenant returns the currently active tenant id, or "" when none is selected.
func (c *Client) Tenant() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenant
}

type envelope struct {
	Action string `json:"action"`
	Params any    `json:"params"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// dispatch posts one action envelope and decodes the response into out when
// out is non-nil.
func (c *Client) dispatch(ctx context.Context, action string, params any, out any) error {
	tenant := c.Tenant()
	if tenant == "" {
		return ErrNoActiveTenant
	}

	payload, err := json.Marshal(envelope{Action: action, Params: params})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/dal", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tenantIDHeader, tenant)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body errorBody
		if decErr := json.NewDecoder(resp.Body).Decode(&body); decErr == nil {
			apiErr.Code = body.Error.Code
			apiErr.Message = body.Error.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetItemByID fetches one document. A missing document is (nil, nil), not an
// error.
func (c *Client) GetItemByID(ctx context.Context, collection, id string) (map[string]any, error) {
	var rec map[string]any
	err := c.dispatch(ctx, "getItemById", map[string]any{
		"collectionName": collection,
		"id":             id,
	}, &rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetAllItems fetches every document of a collection.
func (c *Client) GetAllItems(ctx context.Context, collection string) ([]map[string]any, error) {
	var recs []map[string]any
	err := c.dispatch(ctx, "getAllItems", map[string]any{
		"collectionName": collection,
	}, &recs)
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// AddItem creates a document with a server-assigned id and returns that id.
func (c *Client) AddItem(ctx context.Context, collection string, data map[string]any) (string, error) {
	var res struct {
		ID string `json:"id"`
	}
	err := c.dispatch(ctx, "addItem", map[string]any{
		"collectionName": collection,
		"data":           data,
	}, &res)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

// SetItem writes a document at a caller-chosen id. With merge the payload is
// shallow-merged into the existing document; without it the document is
// replaced.
func (c *Client) SetItem(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	return c.dispatch(ctx, "setItem", map[string]any{
		"collectionName": collection,
		"id":             id,
		"data":           data,
		"merge":          merge,
	}, nil)
}

// UpdateItem shallow-merges updateData into an existing document.
func (c *Client) UpdateItem(ctx context.Context, collection, id string, updateData map[string]any) error {
	return c.dispatch(ctx, "updateItem", map[string]any{
		"collectionName": collection,
		"id":             id,
		"updateData":     updateData,
	}, nil)
}

// DeleteDocument removes a document. Deleting an absent document succeeds.
func (c *Client) DeleteDocument(ctx context.Context, collection, id string) error {
	return c.dispatch(ctx, "deleteDocument", map[string]any{
		"collectionName": collection,
		"id":             id,
	}, nil)
}

// TouchLastModified bumps a document's lastModified stamp without changing
// any other field. The server overwrites the stamp value with its own clock.
func (c *Client) TouchLastModified(ctx context.Context, collection, id string) error {
	return c.UpdateItem(ctx, collection, id, map[string]any{
		"lastModified": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
