package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carbonledger/internal/supplier"
)

// PostgresStore persists benchmarks in the supplier_benchmarks table.
//
// Schema:
//
//	CREATE TABLE supplier_benchmarks (
//	    id                      TEXT PRIMARY KEY,
//	    supplier_id             TEXT NOT NULL,
//	    supplier_name           TEXT NOT NULL,
//	    peer_id                 TEXT NOT NULL,
//	    peer_name               TEXT NOT NULL,
//	    category                TEXT NOT NULL,
//	    cee_rating              TEXT NOT NULL,
//	    supplier_intensity      DOUBLE PRECISION NOT NULL,
//	    peer_intensity          DOUBLE PRECISION NOT NULL,
//	    potential_reduction_pct DOUBLE PRECISION NOT NULL,
//	    upstream_impact_pct     DOUBLE PRECISION NOT NULL,
//	    industry_sector         TEXT NOT NULL,
//	    revenue_band            TEXT NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const benchmarkColumns = `id, supplier_id, supplier_name, peer_id, peer_name, category, cee_rating,
	supplier_intensity, peer_intensity, potential_reduction_pct, upstream_impact_pct,
	industry_sector, revenue_band`

func (s *PostgresStore) Upsert(ctx context.Context, benchmarks []supplier.Benchmark) error {
	query := `
		INSERT INTO supplier_benchmarks (` + benchmarkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			supplier_id = EXCLUDED.supplier_id,
			supplier_name = EXCLUDED.supplier_name,
			peer_id = EXCLUDED.peer_id,
			peer_name = EXCLUDED.peer_name,
			category = EXCLUDED.category,
			cee_rating = EXCLUDED.cee_rating,
			supplier_intensity = EXCLUDED.supplier_intensity,
			peer_intensity = EXCLUDED.peer_intensity,
			potential_reduction_pct = EXCLUDED.potential_reduction_pct,
			upstream_impact_pct = EXCLUDED.upstream_impact_pct,
			industry_sector = EXCLUDED.industry_sector,
			revenue_band = EXCLUDED.revenue_band`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin benchmark upsert: %w", err)
	}
	defer tx.Rollback()

	for _, b := range benchmarks {
		if _, err := tx.ExecContext(ctx, query,
			b.ID, b.SupplierID, b.SupplierName, b.PeerID, b.PeerName, b.Category, b.CEERating,
			b.SupplierIntensity, b.PeerIntensity, b.PotentialReductionPct, b.UpstreamImpactPct,
			b.IndustrySector, b.RevenueBand,
		); err != nil {
			return fmt.Errorf("failed to upsert benchmark: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit benchmark upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*supplier.Benchmark, error) {
	query := `SELECT ` + benchmarkColumns + ` FROM supplier_benchmarks WHERE id = $1`

	var b supplier.Benchmark
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.SupplierID, &b.SupplierName, &b.PeerID, &b.PeerName, &b.Category, &b.CEERating,
		&b.SupplierIntensity, &b.PeerIntensity, &b.PotentialReductionPct, &b.UpstreamImpactPct,
		&b.IndustrySector, &b.RevenueBand,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get benchmark: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]supplier.Benchmark, error) {
	query := `SELECT ` + benchmarkColumns + ` FROM supplier_benchmarks ORDER BY upstream_impact_pct DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmarks: %w", err)
	}
	defer rows.Close()

	out := []supplier.Benchmark{}
	for rows.Next() {
		var b supplier.Benchmark
		if err := rows.Scan(
			&b.ID, &b.SupplierID, &b.SupplierName, &b.PeerID, &b.PeerName, &b.Category, &b.CEERating,
			&b.SupplierIntensity, &b.PeerIntensity, &b.PotentialReductionPct, &b.UpstreamImpactPct,
			&b.IndustrySector, &b.RevenueBand,
		); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate benchmarks: %w", err)
	}
	return out, nil
}
