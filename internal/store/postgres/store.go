// Package postgres provides a PostgreSQL-backed implementation of
// [store.ReminderRepository].
//
// The reminder set is small (one row per reminder) and the repository
// contract is wholesale replacement, so Save runs a single transaction that
// clears the table and re-inserts the full set via a batch. [Migrate] creates
// the table on first connect.
//
// Usage:
//
//	repo, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer repo.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxtask/voxtask/internal/store"
	"github.com/voxtask/voxtask/pkg/types"
)

var _ store.ReminderRepository = (*Store)(nil)

// Store is the PostgreSQL-backed reminder repository. It holds a single
// [pgxpool.Pool]. All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure the reminders table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Load returns the full persisted reminder set ordered by due time.
func (s *Store) Load(ctx context.Context) ([]types.Reminder, error) {
	const q = `
		SELECT id, task_id, due_at, mode, active
		FROM reminders
		ORDER BY due_at, id
	`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load reminders: %w", err)
	}
	defer rows.Close()

	var reminders []types.Reminder
	for rows.Next() {
		var r types.Reminder
		var mode string
		if err := rows.Scan(&r.ID, &r.TaskID, &r.DueAt, &mode, &r.Active); err != nil {
			return nil, fmt.Errorf("postgres store: scan reminder: %w", err)
		}
		r.Mode = types.DeliveryMode(mode)
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate reminders: %w", err)
	}
	return reminders, nil
}

// Save replaces the persisted set wholesale in one transaction.
func (s *Store) Save(ctx context.Context, reminders []types.Reminder) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reminders`); err != nil {
		return fmt.Errorf("postgres store: clear reminders: %w", err)
	}

	batch := &pgx.Batch{}
	const ins = `
		INSERT INTO reminders (id, task_id, due_at, mode, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, r := range reminders {
		batch.Queue(ins, r.ID, r.TaskID, r.DueAt, string(r.Mode), r.Active)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres store: insert reminders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit: %w", err)
	}
	return nil
}
