package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"carbonledger/internal/recommendation"
)

// PostgresStore persists recommendation content in the
// recommendation_contents table. The narrative body is stored as one JSONB
// document; it is always read and written whole.
//
// Schema:
//
//	CREATE TABLE recommendation_contents (
//	    benchmark_id TEXT PRIMARY KEY,
//	    content      JSONB NOT NULL,
//	    generated_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, benchmarkID string) (*recommendation.Content, error) {
	query := `SELECT content FROM recommendation_contents WHERE benchmark_id = $1`

	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, benchmarkID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recommendation content: %w", err)
	}

	var content recommendation.Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("failed to decode recommendation content: %w", err)
	}
	return &content, nil
}

func (s *PostgresStore) Set(ctx context.Context, content recommendation.Content) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation content: %w", err)
	}

	query := `
		INSERT INTO recommendation_contents (benchmark_id, content, generated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (benchmark_id) DO UPDATE SET
			content = EXCLUDED.content,
			generated_at = EXCLUDED.generated_at`

	if _, err := s.db.ExecContext(ctx, query, content.BenchmarkID, raw, content.GeneratedAt); err != nil {
		return fmt.Errorf("failed to set recommendation content: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]recommendation.Content, error) {
	query := `SELECT content FROM recommendation_contents ORDER BY benchmark_id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendation contents: %w", err)
	}
	defer rows.Close()

	out := []recommendation.Content{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation content: %w", err)
		}
		var content recommendation.Content
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, fmt.Errorf("failed to decode recommendation content: %w", err)
		}
		out = append(out, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendation contents: %w", err)
	}
	return out, nil
}
