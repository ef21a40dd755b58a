package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists audit events in the audit_events table.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id        TEXT PRIMARY KEY,
//	    timestamp TIMESTAMPTZ NOT NULL,
//	    actor     TEXT NOT NULL,
//	    action    TEXT NOT NULL,
//	    subject   TEXT NOT NULL,
//	    period    TEXT NOT NULL DEFAULT '',
//	    details   JSONB
//	);
//	CREATE INDEX audit_events_actor_idx ON audit_events (actor, timestamp DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var details []byte
	if event.Details != nil {
		encoded, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = encoded
	}

	query := `
		INSERT INTO audit_events (id, timestamp, actor, action, subject, period, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.Actor, event.Action,
		event.Subject, event.Period, details,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, actor string) ([]Event, error) {
	query := `
		SELECT id, timestamp, actor, action, subject, period, details
		FROM audit_events`
	args := []any{}
	if actor != "" {
		query += ` WHERE actor = $1`
		args = append(args, actor)
	}
	query += ` ORDER BY timestamp DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var event Event
		var details []byte
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.Actor, &event.Action,
			&event.Subject, &event.Period, &details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return out, nil
}
