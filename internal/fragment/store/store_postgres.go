package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"carbonledger/internal/fragment"
)

// PostgresStore persists fragments in the fragments table. Bounding boxes are
// stored as the producer's four-tuple JSON so absent boxes stay absent.
//
// Schema:
//
//	CREATE TABLE fragments (
//	    id                    TEXT PRIMARY KEY,
//	    document_id           TEXT NOT NULL,
//	    page_number           INT NOT NULL,
//	    text                  TEXT NOT NULL,
//	    bounding_box          JSONB,
//	    extraction_request_id TEXT NOT NULL DEFAULT '',
//	    created_at            TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX fragments_page_idx ON fragments (document_id, page_number);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, fragments []fragment.Fragment) error {
	query := `
		INSERT INTO fragments (id, document_id, page_number, text, bounding_box, extraction_request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin fragment append: %w", err)
	}
	defer tx.Rollback()

	for _, f := range fragments {
		box, err := boxJSON(f.Box)
		if err != nil {
			return fmt.Errorf("failed to encode bounding box: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, f.ID, f.DocumentID, f.PageNumber, f.Text, box, f.ExtractionRequestID, f.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert fragment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fragment append: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPage(ctx context.Context, documentID string, page int) ([]fragment.Fragment, error) {
	query := `
		SELECT id, document_id, page_number, text, bounding_box, extraction_request_id, created_at
		FROM fragments
		WHERE document_id = $1 AND page_number = $2`

	rows, err := s.db.QueryContext(ctx, query, documentID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}
	defer rows.Close()

	out := []fragment.Fragment{}
	for rows.Next() {
		var f fragment.Fragment
		var box sql.NullString
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.PageNumber, &f.Text, &box, &f.ExtractionRequestID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		if box.Valid {
			// Tolerant decode: malformed stored boxes read back as absent.
			_ = json.Unmarshal([]byte(box.String), &f.Box)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fragments: %w", err)
	}
	return out, nil
}

func boxJSON(box fragment.MaybeBox) (any, error) {
	if box.Box == nil {
		return nil, nil
	}
	raw, err := json.Marshal(box)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
