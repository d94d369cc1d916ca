package postgres

import (
	"context"
	"fmt"
)

// Schema bootstrap. The engine only reads consultation history and the
// user mirror; both tables are created idempotently on startup.
const schema = `
CREATE TABLE IF NOT EXISTS consultation_record (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	question TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
);

CREATE INDEX IF NOT EXISTS idx_consultation_record_user_id ON consultation_record (user_id);
CREATE INDEX IF NOT EXISTS idx_consultation_record_created_ts ON consultation_record (created_ts DESC);

CREATE TABLE IF NOT EXISTS "user" (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	nickname TEXT NOT NULL DEFAULT ''
);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
