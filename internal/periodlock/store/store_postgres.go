package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"carbonledger/internal/periodlock"
)

// PostgresStore persists period lock state in the period_locks table.
//
// Schema:
//
//	CREATE TABLE period_locks (
//	    period     TEXT PRIMARY KEY,
//	    status     TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, period string) (*periodlock.Lock, error) {
	query := `SELECT period, status, created_at FROM period_locks WHERE period = $1`

	var lock periodlock.Lock
	err := s.db.QueryRowContext(ctx, query, period).Scan(&lock.Period, &lock.Status, &lock.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get period lock: %w", err)
	}
	return &lock, nil
}

func (s *PostgresStore) Set(ctx context.Context, lock periodlock.Lock) error {
	query := `
		INSERT INTO period_locks (period, status, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (period) DO UPDATE SET
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at`

	if _, err := s.db.ExecContext(ctx, query, lock.Period, lock.Status, lock.CreatedAt); err != nil {
		return fmt.Errorf("failed to set period lock: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]periodlock.Lock, error) {
	query := `SELECT period, status, created_at FROM period_locks ORDER BY period ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list period locks: %w", err)
	}
	defer rows.Close()

	out := []periodlock.Lock{}
	for rows.Next() {
		var lock periodlock.Lock
		if err := rows.Scan(&lock.Period, &lock.Status, &lock.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan period lock: %w", err)
		}
		out = append(out, lock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate period locks: %w", err)
	}
	return out, nil
}

func sortLocks(locks []periodlock.Lock) {
	sort.Slice(locks, func(i, j int) bool { return locks[i].Period < locks[j].Period })
}
