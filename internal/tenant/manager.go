package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"outpost/internal/config"
	"outpost/internal/database"
	"outpost/internal/database/migration"
	"outpost/internal/docstore/postgres"
)

// Manager resolves tenant ids to cached connection handles. Cold
// initialization (credential parsing, opening the client, schema bootstrap) is
// expensive and must happen exactly once per tenant per process, so first-time
// resolution is single-flighted. There is no refresh path: a resolved handle
// lives until Unload or Close.
type Manager struct {
	pool config.PoolConfig
	log  *zap.Logger

	// injection points for tests
	lookupEnv func(string) (string, bool)
	open      func(ctx context.Context, id ID, c credentials) (*sql.DB, error)

	flight singleflight.Group

	mu      sync.RWMutex
	handles map[ID]*Handle
}

// NewManager constructs a Manager. No tenant is touched until Resolve.
func NewManager(pool config.PoolConfig, log *zap.Logger) *Manager {
	m := &Manager{
		pool:      pool,
		log:       log,
		lookupEnv: os.LookupEnv,
		handles:   make(map[ID]*Handle),
	}
	m.open = m.openPostgres
	return m
}

// Resolve returns the connection handle for a tenant, initializing it on
// first use. Re-requesting an already-initialized tenant returns the cached
// handle and never re-authenticates.
func (m *Manager) Resolve(ctx context.Context, tenantID string) (*Handle, error) {
	id, err := ParseID(tenantID)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	h, ok := m.handles[id]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := m.flight.Do(string(id), func() (any, error) {
		// Another flight may have completed between the cache miss and here.
		m.mu.RLock()
		h, ok := m.handles[id]
		m.mu.RUnlock()
		if ok {
			return h, nil
		}
		return m.initialize(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (m *Manager) initialize(ctx context.Context, id ID) (*Handle, error) {
	raw, ok := m.lookupEnv(EnvKey(id))
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, EnvKey(id))
	}
	creds, err := parseCredentials(id, raw)
	if err != nil {
		return nil, err
	}

	db, err := m.open(ctx, id, creds)
	if err != nil {
		return nil, fmt.Errorf("initialize tenant %s: %w", id, err)
	}

	h := NewHandle(id, db, postgres.NewStorePostgres(db))

	m.mu.Lock()
	m.handles[id] = h
	m.mu.Unlock()

	m.log.Info("tenant initialized", zap.String("tenant", string(id)))
	return h, nil
}

// openPostgres is the production cold-init path: open the tenant database
// under a unique application name and ensure its documents schema exists.
func (m *Manager) openPostgres(ctx context.Context, id ID, c credentials) (*sql.DB, error) {
	db, err := database.NewPostgres(database.ConnConfig{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Name:     c.DBName,
		SSLMode:  c.SSLMode,
		AppName:  "outpost-" + string(id),
	}, m.pool)
	if err != nil {
		return nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, m.log, string(id)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Loaded reports which tenants currently hold a live handle.
func (m *Manager) Loaded() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]ID, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	return ids
}

// Unload closes and evicts one tenant's handle. Cleanup only; the next
// Resolve for this tenant performs a fresh cold init.
func (m *Manager) Unload(id ID) error {
	m.mu.Lock()
	h, ok := m.handles[id]
	delete(m.handles, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.log.Info("tenant unloaded", zap.String("tenant", string(id)))
	return h.close()
}

// Close tears down every cached handle. Used on process shutdown and in tests.
func (m *Manager) Close() error {
	var firstErr error
	for _, id := range All {
		if err := m.Unload(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
