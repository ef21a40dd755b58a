package anomaly

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists anomaly records and scan history.
//
// Schema:
//
//	CREATE TABLE anomaly_records (
//	    id              TEXT PRIMARY KEY,
//	    rule_id         TEXT NOT NULL,
//	    severity        TEXT NOT NULL,
//	    subject_type    TEXT NOT NULL,
//	    subject_id      TEXT NOT NULL,
//	    message         TEXT NOT NULL,
//	    fix_hint        TEXT NOT NULL,
//	    details         JSONB,
//	    status          TEXT NOT NULL,
//	    resolution_note TEXT NOT NULL DEFAULT '',
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    updated_at      TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE anomaly_scans (
//	    id           TEXT PRIMARY KEY,
//	    started_at   TIMESTAMPTZ NOT NULL,
//	    completed_at TIMESTAMPTZ NOT NULL,
//	    upserted     INT NOT NULL,
//	    rules_failed INT NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, record Record) (bool, error) {
	details, err := detailsJSON(record.Details)
	if err != nil {
		return false, err
	}

	// The WHERE clause makes a no-change update affect zero rows, so
	// RowsAffected doubles as the "did this scan write anything" signal.
	// Severity, status and resolution_note are fixed at insert and never in
	// the SET list.
	query := `
		INSERT INTO anomaly_records
			(id, rule_id, severity, subject_type, subject_id, message, fix_hint, details, status, resolution_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			message = EXCLUDED.message,
			fix_hint = EXCLUDED.fix_hint,
			details = EXCLUDED.details,
			updated_at = EXCLUDED.updated_at
		WHERE anomaly_records.message IS DISTINCT FROM EXCLUDED.message
			OR anomaly_records.fix_hint IS DISTINCT FROM EXCLUDED.fix_hint
			OR anomaly_records.details IS DISTINCT FROM EXCLUDED.details`

	res, err := s.db.ExecContext(ctx, query,
		record.ID, record.RuleID, record.Severity, record.SubjectType, record.SubjectID,
		record.Message, record.FixHint, details, record.Status, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert anomaly record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read upsert result: %w", err)
	}
	return affected > 0, nil
}

const recordColumns = `id, rule_id, severity, subject_type, subject_id, message, fix_hint, details, status, resolution_note, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM anomaly_records WHERE id = $1`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get anomaly record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM anomaly_records
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR severity = $2)
		ORDER BY
			CASE severity WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
			created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, string(filter.Status), string(filter.Severity))
	if err != nil {
		return nil, fmt.Errorf("failed to list anomaly records: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly record: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomaly records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status, note string) (*Record, error) {
	query := `
		UPDATE anomaly_records
		SET status = $2, resolution_note = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + recordColumns

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id, status, note))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update anomaly status: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) RecordScan(ctx context.Context, run ScanRun) error {
	query := `
		INSERT INTO anomaly_scans (id, started_at, completed_at, upserted, rules_failed)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.ExecContext(ctx, query, run.ID, run.StartedAt, run.CompletedAt, run.Upserted, run.RulesFailed); err != nil {
		return fmt.Errorf("failed to record scan run: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastScan(ctx context.Context) (*ScanRun, error) {
	query := `
		SELECT id, started_at, completed_at, upserted, rules_failed
		FROM anomaly_scans
		ORDER BY completed_at DESC
		LIMIT 1`

	var run ScanRun
	err := s.db.QueryRowContext(ctx, query).Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Upserted, &run.RulesFailed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last scan run: %w", err)
	}
	return &run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var details []byte
	err := row.Scan(
		&record.ID, &record.RuleID, &record.Severity, &record.SubjectType, &record.SubjectID,
		&record.Message, &record.FixHint, &details, &record.Status, &record.ResolutionNote,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &record.Details); err != nil {
			return nil, fmt.Errorf("failed to decode anomaly details: %w", err)
		}
	}
	return &record, nil
}

func detailsJSON(details map[string]string) (any, error) {
	if len(details) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode anomaly details: %w", err)
	}
	return raw, nil
}
