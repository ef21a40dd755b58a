package service

import (
	"context"
	"log/slog"
	"strconv"

	"carbonledger/internal/audit"
	"carbonledger/internal/supplier"
	dErrors "carbonledger/pkg/domain-errors"
)

// Store persists supplier benchmarks keyed by benchmark id.
type Store interface {
	Upsert(ctx context.Context, benchmarks []supplier.Benchmark) error
	Get(ctx context.Context, id string) (*supplier.Benchmark, error)
	List(ctx context.Context) ([]supplier.Benchmark, error)
}

// Gate denies mutations attributed to a locked reporting period.
type Gate interface {
	Check(ctx context.Context, period string) error
}

// ListFilter narrows the benchmark listing. Zero values mean no filtering.
type ListFilter struct {
	Category  string
	MinImpact float64
}

// Service serves supplier benchmarks and the demo seed.
type Service struct {
	store         Store
	gate          Gate
	logger        *slog.Logger
	audit         *audit.Publisher
	defaultPeriod string
}

func New(store Store, gate Gate, logger *slog.Logger, aud *audit.Publisher, defaultPeriod string) *Service {
	return &Service{store: store, gate: gate, logger: logger, audit: aud, defaultPeriod: defaultPeriod}
}

// Seed loads the deterministic demo benchmark set. Re-seeding overwrites the
// same ids, so the operation is idempotent.
func (s *Service) Seed(ctx context.Context) (int, error) {
	if err := s.gate.Check(ctx, s.defaultPeriod); err != nil {
		return 0, err
	}

	benchmarks := supplier.SeedBenchmarks()
	if err := s.store.Upsert(ctx, benchmarks); err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "failed to seed benchmarks", err)
	}

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionBenchmarksSeeded,
		Subject: "benchmark_seed",
		Period:  s.defaultPeriod,
		Details: map[string]string{"count": strconv.Itoa(len(benchmarks))},
	})
	s.logger.InfoContext(ctx, "supplier benchmarks seeded", "count", len(benchmarks))
	return len(benchmarks), nil
}

// Get returns one benchmark by id.
func (s *Service) Get(ctx context.Context, id string) (supplier.Benchmark, error) {
	benchmark, err := s.store.Get(ctx, id)
	if err != nil {
		return supplier.Benchmark{}, dErrors.Wrap(dErrors.CodeInternal, "failed to get benchmark", err)
	}
	if benchmark == nil {
		return supplier.Benchmark{}, dErrors.New(dErrors.CodeNotFound, "benchmark not found").WithField("id", id)
	}
	return *benchmark, nil
}

// List returns benchmarks sorted by upstream impact descending, filtered by
// the optional criteria.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]supplier.Benchmark, error) {
	benchmarks, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list benchmarks", err)
	}

	out := benchmarks[:0:0]
	for _, b := range benchmarks {
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if b.UpstreamImpactPct < filter.MinImpact {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
