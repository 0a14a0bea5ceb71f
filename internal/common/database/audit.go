// internal/common/database/audit.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// InsertAudit appends an audit_log row. details is stored as JSONB.
func InsertAudit(ctx context.Context, db Execer, eventType, resourceType, resourceID string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		eventType, resourceType, resourceID, string(raw), time.Now().UTC(),
	)
	return err
}
