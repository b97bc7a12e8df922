package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email         TEXT        NOT NULL UNIQUE,
  username      TEXT        NOT NULL UNIQUE,
  password_hash TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                  UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  filename            TEXT        NOT NULL,
  storage_path        TEXT        NOT NULL UNIQUE,
  mime_type           TEXT        NOT NULL,
  size                BIGINT      NOT NULL CHECK (size >= 0),
  sender_id           UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  recipient_id        UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  encryption_iv       TEXT        NOT NULL,
  encryption_auth_tag TEXT        NOT NULL,
  view_count          INT         NOT NULL DEFAULT 0 CHECK (view_count >= 0),
  view_limit          INT         NULL CHECK (view_limit > 0),
  expires_at          TIMESTAMPTZ NULL,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_sender_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_sender_id ON documents (sender_id);`,
	},
	{
		Name: "create_index_documents_recipient_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_recipient_id ON documents (recipient_id);`,
	},
	{
		// Partial index keeps the sweep query cheap: most documents never expire.
		Name: "create_index_documents_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_expires_at ON documents (expires_at) WHERE expires_at IS NOT NULL;`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{"component": "database", "db_host": dbHost})

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.WithError(err).Error("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithError(err).WithField("migration_step", step.Name).Error("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.WithFields(logrus.Fields{
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Info("migration step applied")
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("migration complete")
	return nil
}
