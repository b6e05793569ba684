package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// The documents table holds every collection of a tenant. Collections are a
// namespace, not a schema: all fields live inside the JSONB data column.
var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  collection    TEXT  NOT NULL,
  id            TEXT  NOT NULL,
  data          JSONB NOT NULL DEFAULT '{}'::jsonb,
  PRIMARY KEY (collection, id)
);`,
	},
	{
		Name: "create_index_documents_collection",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists in a tenant database
// and runs migrations if it doesn't. It runs once per tenant, on first resolve.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, tenant string) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("migration sentinel check failed",
			zap.String("tenant", tenant),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Debug("schema already exists, skipping migration",
			zap.String("tenant", tenant))
		return nil
	}

	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration step failed",
				zap.String("tenant", tenant),
				zap.String("step", step.Name),
				zap.Error(err))
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
	}

	log.Info("tenant schema migrated",
		zap.String("tenant", tenant),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
