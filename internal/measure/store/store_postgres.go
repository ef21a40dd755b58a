package store

import (
	"context"
	"database/sql"
	"fmt"

	"carbonledger/internal/measure"
)

// PostgresStore persists measured values in the measured_values table.
//
// Schema:
//
//	CREATE TABLE measured_values (
//	    id                TEXT PRIMARY KEY,
//	    supplier_id       TEXT NOT NULL,
//	    category          TEXT NOT NULL,
//	    field_key         TEXT NOT NULL,
//	    value             DOUBLE PRECISION NOT NULL,
//	    unit              TEXT NOT NULL,
//	    quality           TEXT NOT NULL,
//	    period            TEXT NOT NULL,
//	    requires_evidence BOOLEAN NOT NULL,
//	    created_at        TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX measured_values_supplier_idx ON measured_values (supplier_id);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const valueColumns = `id, supplier_id, category, field_key, value, unit, quality, period, requires_evidence, created_at`

func (s *PostgresStore) Create(ctx context.Context, value measure.MeasuredValue) error {
	query := `
		INSERT INTO measured_values (` + valueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		value.ID, value.SupplierID, value.Category, value.FieldKey, value.Value,
		value.Unit, value.Quality, value.Period, value.RequiresEvidence, value.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert measured value: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySupplier(ctx context.Context, supplierID string) ([]measure.MeasuredValue, error) {
	query := `
		SELECT ` + valueColumns + `
		FROM measured_values
		WHERE supplier_id = $1
		ORDER BY created_at DESC, id ASC`

	return s.list(ctx, query, supplierID)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]measure.MeasuredValue, error) {
	query := `
		SELECT ` + valueColumns + `
		FROM measured_values
		ORDER BY created_at DESC, id ASC`

	return s.list(ctx, query)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]measure.MeasuredValue, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list measured values: %w", err)
	}
	defer rows.Close()

	out := []measure.MeasuredValue{}
	for rows.Next() {
		var v measure.MeasuredValue
		if err := rows.Scan(
			&v.ID, &v.SupplierID, &v.Category, &v.FieldKey, &v.Value,
			&v.Unit, &v.Quality, &v.Period, &v.RequiresEvidence, &v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measured value: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measured values: %w", err)
	}
	return out, nil
}
