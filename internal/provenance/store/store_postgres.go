package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carbonledger/internal/fragment"
	"carbonledger/internal/provenance"
)

// PostgresStore persists provenance records in the provenance_records table.
//
// Schema:
//
//	CREATE TABLE provenance_records (
//	    id                    TEXT PRIMARY KEY,
//	    entity_type           TEXT NOT NULL,
//	    entity_id             TEXT NOT NULL,
//	    field_key             TEXT NOT NULL,
//	    field_label           TEXT NOT NULL DEFAULT '',
//	    value                 TEXT NOT NULL DEFAULT '',
//	    unit                  TEXT NOT NULL DEFAULT '',
//	    document_id           TEXT NOT NULL,
//	    page_number           INT NOT NULL,
//	    bounding_box          JSONB,
//	    fragment_ids          TEXT[] NOT NULL,
//	    extraction_request_id TEXT NOT NULL DEFAULT '',
//	    notes                 TEXT NOT NULL DEFAULT '',
//	    period                TEXT NOT NULL,
//	    created_at            TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX provenance_entity_idx ON provenance_records (entity_type, entity_id);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, entity_type, entity_id, field_key, field_label, value, unit, document_id, page_number, bounding_box, fragment_ids, extraction_request_id, notes, period, created_at`

func (s *PostgresStore) Create(ctx context.Context, record provenance.Record) error {
	box, err := boxJSON(record.Box)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO provenance_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.EntityType, record.EntityID, record.FieldKey,
		record.FieldLabel, record.Value, record.Unit,
		record.DocumentID, record.PageNumber, box, pq.Array(record.FragmentIDs),
		record.ExtractionRequestID, record.Notes,
		record.Period, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert provenance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*provenance.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM provenance_records WHERE id = $1`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provenance record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]provenance.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM provenance_records
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id ASC`

	return s.list(ctx, query, entityType, entityID)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]provenance.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM provenance_records
		ORDER BY created_at DESC, id ASC`

	return s.list(ctx, query)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM provenance_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete provenance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]provenance.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list provenance records: %w", err)
	}
	defer rows.Close()

	out := []provenance.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provenance record: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate provenance records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*provenance.Record, error) {
	var record provenance.Record
	var box []byte
	err := row.Scan(
		&record.ID, &record.EntityType, &record.EntityID, &record.FieldKey,
		&record.FieldLabel, &record.Value, &record.Unit,
		&record.DocumentID, &record.PageNumber, &box, pq.Array(&record.FragmentIDs),
		&record.ExtractionRequestID, &record.Notes,
		&record.Period, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(box) > 0 {
		if err := json.Unmarshal(box, &record.Box); err != nil {
			return nil, fmt.Errorf("failed to decode anchor box: %w", err)
		}
	}
	return &record, nil
}

// boxJSON encodes the anchor box for the JSONB column; an absent box is
// stored as NULL rather than the literal null document.
func boxJSON(box fragment.MaybeBox) (any, error) {
	if box.Box == nil {
		return nil, nil
	}
	raw, err := json.Marshal(box)
	if err != nil {
		return nil, fmt.Errorf("failed to encode anchor box: %w", err)
	}
	return raw, nil
}
