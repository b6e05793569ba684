package dal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"outpost/internal/tenant"
)

// Envelope is the request body crossing the HTTP boundary. The tenant id
// travels out-of-band in a header, never in the body.
type Envelope struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Resolver yields a tenant's connection handle. Implemented by
// tenant.Manager; faked in tests to count resolutions.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string) (*tenant.Handle, error)
}

// Dispatcher validates an inbound envelope, resolves the tenant, executes
// exactly one CRUD action against that tenant's document store, and maps
// failures to boundary errors. It holds no per-request state; the tenant cache
// inside the Resolver is the only shared mutable state.
type Dispatcher struct {
	tenants Resolver
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher constructs a Dispatcher. timeout bounds each document-database
// operation; zero or negative falls back to 10s.
func NewDispatcher(tenants Resolver, log *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		tenants: tenants,
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// Dispatch runs one DAL operation. Validation is cheap-fail first: envelope
// checks precede tenant resolution, which precedes any database access.
// Backend errors come back opaque; the full cause is logged here with tenant
// and action context before conversion.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, env Envelope) (*Result, *Error) {
	if tenantID == "" {
		return nil, badRequest("Tenant-ID header is required.")
	}
	if env.Action == "" || !paramsPresent(env.Params) {
		return nil, badRequest(`Request body must include "action" and "params".`)
	}

	h, err := d.tenants.Resolve(ctx, tenantID)
	if err != nil {
		d.log.Error("tenant resolution failed",
			zap.String("tenant", tenantID),
			zap.String("action", env.Action),
			zap.Error(err))
		return nil, configuration(err)
	}

	factory, ok := actions[Action(env.Action)]
	if !ok {
		return nil, badRequest(fmt.Sprintf("Unknown action: %s", env.Action))
	}
	act := factory()
	if err := json.Unmarshal(env.Params, act); err != nil {
		return nil, badRequest("params must be a JSON object")
	}
	if err := act.validateParams(); err != nil {
		return nil, badRequest(err.Error())
	}

	opCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, execErr := act.execute(opCtx, h.Store(), d.now)
	if execErr != nil {
		d.log.Error("dal action failed",
			zap.String("tenant", tenantID),
			zap.String("action", env.Action),
			zap.Error(execErr))
		if errors.Is(execErr, context.DeadlineExceeded) {
			return nil, upstreamTimeout(execErr)
		}
		return nil, internal(execErr)
	}
	return res, nil
}

// paramsPresent reports whether the envelope carried a params value at all;
// JSON null counts as absent.
func paramsPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
