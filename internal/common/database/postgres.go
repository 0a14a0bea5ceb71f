// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"probate-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// EnsureSchema creates the probate tables when they are missing.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// WithTx runs fn in a transaction, committing on nil and rolling back
// otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cases (
		id                      UUID PRIMARY KEY,
		decedent_name           TEXT NOT NULL,
		date_of_death           DATE NOT NULL,
		county                  TEXT NOT NULL,
		petitioner_name         TEXT NOT NULL,
		petitioner_email        TEXT NOT NULL,
		petitioner_phone        TEXT,
		petitioner_relationship TEXT NOT NULL,
		has_will                BOOLEAN NOT NULL DEFAULT FALSE,
		estimated_estate_value  NUMERIC(14, 2),
		phase                   TEXT NOT NULL,
		created_at              TIMESTAMPTZ NOT NULL,
		updated_at              TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS cases_decedent_idx ON cases (lower(decedent_name), date_of_death)`,
	`CREATE TABLE IF NOT EXISTS case_documents (
		id            UUID PRIMARY KEY,
		case_id       UUID NOT NULL REFERENCES cases(id),
		name          TEXT NOT NULL,
		document_type TEXT NOT NULL DEFAULT '',
		tax_year      TEXT NOT NULL DEFAULT '',
		extracted_text TEXT NOT NULL DEFAULT '',
		uploaded_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS case_assets (
		case_id          UUID NOT NULL REFERENCES cases(id),
		position         INT NOT NULL,
		asset_type       TEXT NOT NULL,
		institution      TEXT NOT NULL DEFAULT '',
		account_number   TEXT NOT NULL DEFAULT '',
		description      TEXT NOT NULL DEFAULT '',
		evidence         TEXT NOT NULL DEFAULT '',
		estimated_value  TEXT,
		action_required  TEXT NOT NULL DEFAULT '',
		source_documents JSONB NOT NULL,
		PRIMARY KEY (case_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS asset_discovery_runs (
		id                  UUID PRIMARY KEY,
		case_id             UUID NOT NULL REFERENCES cases(id),
		documents_total     INT NOT NULL,
		documents_analyzed  INT NOT NULL,
		failed_documents    JSONB NOT NULL,
		recommendations     JSONB NOT NULL,
		completed_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS case_phase_history (
		id         BIGSERIAL PRIMARY KEY,
		case_id    UUID NOT NULL REFERENCES cases(id),
		from_phase TEXT NOT NULL DEFAULT '',
		to_phase   TEXT NOT NULL,
		changed_by TEXT NOT NULL DEFAULT '',
		changed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id            BIGSERIAL PRIMARY KEY,
		event_type    TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id   TEXT NOT NULL,
		details       JSONB,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
}
