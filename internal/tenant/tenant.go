package tenant

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"outpost/internal/docstore"
)

// Package tenant maps tenant identifiers to isolated, lazily-initialized
// document-database handles. Each tenant is one Postgres database with its
// own credential material, held in process environment.

// ID identifies one isolated backend environment. The set is closed; anything
// else is a configuration error.
type ID string

const (
	Operational ID = "operational"
	BizData     ID = "bizData"
	BizTrends   ID = "bizTrends"
	Audit       ID = "audit"
)

// All lists every valid tenant id.
var All = []ID{Operational, BizData, BizTrends, Audit}

var (
	// ErrUnknownTenant means the id is outside the enumerated set.
	ErrUnknownTenant = errors.New("invalid or unsupported tenant id")
	// ErrCredentialsMissing means the tenant's credential env var is not set.
	ErrCredentialsMissing = errors.New("tenant credentials not set")
	// ErrCredentialsInvalid means credential material is present but not
	// well-formed JSON.
	ErrCredentialsInvalid = errors.New("tenant credentials malformed")
)

// ParseID validates a raw tenant id string against the enumerated set.
func ParseID(s string) (ID, error) {
	for _, id := range All {
		if s == string(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTenant, s)
}

// EnvKey returns the environment variable holding a tenant's credential JSON,
// e.g. TENANT_BIZDATA_CREDENTIALS for bizData.
func EnvKey(id ID) string {
	return "TENANT_" + strings.ToUpper(string(id)) + "_CREDENTIALS"
}

// credentials is the service-account-like secret stored per tenant.
type credentials struct {
	ProjectID string `json:"project_id"`
	Host      string `json:"host"`
	Port      string `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	DBName    string `json:"dbname"`
	SSLMode   string `json:"sslmode"`
}

func parseCredentials(id ID, raw string) (credentials, error) {
	var c credentials
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return credentials{}, fmt.Errorf("%w (%s): %v", ErrCredentialsInvalid, EnvKey(id), err)
	}
	return c, nil
}

// Handle is the cached connection handle bound to one tenant for the process
// lifetime.
type Handle struct {
	id    ID
	db    *sql.DB
	store docstore.Store
}

// NewHandle wraps an already-open tenant database. Exposed so that callers
// depending on the resolver can be exercised against fake stores.
func NewHandle(id ID, db *sql.DB, store docstore.Store) *Handle {
	return &Handle{id: id, db: db, store: store}
}

// ID returns the tenant this handle is bound to.
func (h *Handle) ID() ID { return h.id }

// DB exposes the underlying database connection (health checks).
func (h *Handle) DB() *sql.DB { return h.db }

// Store returns the document store scoped to this tenant.
func (h *Handle) Store() docstore.Store { return h.store }

func (h *Handle) close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}
