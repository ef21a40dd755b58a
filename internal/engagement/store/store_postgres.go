package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"carbonledger/internal/engagement"
)

// PostgresStore persists engagements in the supplier_engagements table.
// History rides along as a JSONB column; it is only ever read and written
// whole with its engagement.
//
// Schema:
//
//	CREATE TABLE supplier_engagements (
//	    supplier_id      TEXT PRIMARY KEY,
//	    status           TEXT NOT NULL,
//	    notes            TEXT NOT NULL DEFAULT '',
//	    next_action_date TEXT NOT NULL DEFAULT '',
//	    history          JSONB NOT NULL DEFAULT '[]',
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, supplierID string) (*engagement.Engagement, error) {
	query := `
		SELECT supplier_id, status, notes, next_action_date, history, updated_at
		FROM supplier_engagements
		WHERE supplier_id = $1`

	var eng engagement.Engagement
	var history []byte
	err := s.db.QueryRowContext(ctx, query, supplierID).Scan(
		&eng.SupplierID, &eng.Status, &eng.Notes, &eng.NextActionDate, &history, &eng.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get engagement: %w", err)
	}
	if err := json.Unmarshal(history, &eng.History); err != nil {
		return nil, fmt.Errorf("failed to decode engagement history: %w", err)
	}
	return &eng, nil
}

func (s *PostgresStore) Set(ctx context.Context, eng engagement.Engagement) error {
	history, err := json.Marshal(eng.History)
	if err != nil {
		return fmt.Errorf("failed to encode engagement history: %w", err)
	}

	query := `
		INSERT INTO supplier_engagements (supplier_id, status, notes, next_action_date, history, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (supplier_id) DO UPDATE SET
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			next_action_date = EXCLUDED.next_action_date,
			history = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query,
		eng.SupplierID, eng.Status, eng.Notes, eng.NextActionDate, history, eng.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to set engagement: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]engagement.Engagement, error) {
	query := `
		SELECT supplier_id, status, notes, next_action_date, history, updated_at
		FROM supplier_engagements
		ORDER BY supplier_id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagements: %w", err)
	}
	defer rows.Close()

	out := []engagement.Engagement{}
	for rows.Next() {
		var eng engagement.Engagement
		var history []byte
		if err := rows.Scan(
			&eng.SupplierID, &eng.Status, &eng.Notes, &eng.NextActionDate, &history, &eng.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan engagement: %w", err)
		}
		if err := json.Unmarshal(history, &eng.History); err != nil {
			return nil, fmt.Errorf("failed to decode engagement history: %w", err)
		}
		out = append(out, eng)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate engagements: %w", err)
	}
	return out, nil
}
