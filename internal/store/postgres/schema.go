package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlReminders = `
CREATE TABLE IF NOT EXISTS reminders (
    id       TEXT         PRIMARY KEY,
    task_id  TEXT         NOT NULL,
    due_at   TIMESTAMPTZ  NOT NULL,
    mode     TEXT         NOT NULL DEFAULT 'notification',
    active   BOOLEAN      NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_reminders_task_id
    ON reminders (task_id);

CREATE INDEX IF NOT EXISTS idx_reminders_due_at
    ON reminders (due_at);
`

// Migrate ensures the reminders table and its indexes exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlReminders); err != nil {
		return fmt.Errorf("postgres store: apply schema: %w", err)
	}
	return nil
}
