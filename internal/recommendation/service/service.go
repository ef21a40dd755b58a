package service

import (
	"context"
	"log/slog"
	"time"

	"carbonledger/internal/audit"
	"carbonledger/internal/recommendation"
	dErrors "carbonledger/pkg/domain-errors"
)

// Store persists recommendation content keyed by benchmark id. Get returns
// (nil, nil) when no content is cached for the benchmark.
type Store interface {
	Get(ctx context.Context, benchmarkID string) (*recommendation.Content, error)
	Set(ctx context.Context, content recommendation.Content) error
	List(ctx context.Context) ([]recommendation.Content, error)
}

// Gate denies mutations attributed to a locked reporting period.
type Gate interface {
	Check(ctx context.Context, period string) error
}

// Service caches and serves reduction recommendation narratives.
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

// Upsert caches content for a benchmark, replacing any previous version.
func (s *Service) Upsert(ctx context.Context, benchmarkID string, req recommendation.UpsertRequest) (recommendation.Content, error) {
	if benchmarkID == "" {
		return recommendation.Content{}, dErrors.New(dErrors.CodeInvalidInput, "benchmark id is required").WithField("field", "benchmark_id")
	}
	if req.Headline == "" {
		return recommendation.Content{}, dErrors.New(dErrors.CodeInvalidInput, "headline is required").WithField("field", "headline")
	}

	period := req.Period
	if period == "" {
		period = s.defaultPeriod
	}
	if err := s.gate.Check(ctx, period); err != nil {
		return recommendation.Content{}, err
	}

	content := recommendation.Content{
		BenchmarkID:         benchmarkID,
		Headline:            req.Headline,
		ActionPlan:          req.ActionPlan,
		CaseStudySummary:    req.CaseStudySummary,
		ContractClause:      req.ContractClause,
		SourceCitations:     req.SourceCitations,
		FeasibilityTimeline: req.FeasibilityTimeline,
		GeneratedAt:         time.Now().UTC(),
	}
	if err := s.store.Set(ctx, content); err != nil {
		return recommendation.Content{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save recommendation content", err)
	}

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionRecommendationSaved,
		Subject: benchmarkID,
		Period:  period,
	})
	s.logger.InfoContext(ctx, "recommendation content cached",
		"benchmark_id", benchmarkID,
		"citations", len(content.SourceCitations),
	)
	return content, nil
}

// Get returns the cached content for a benchmark.
func (s *Service) Get(ctx context.Context, benchmarkID string) (recommendation.Content, error) {
	if benchmarkID == "" {
		return recommendation.Content{}, dErrors.New(dErrors.CodeInvalidInput, "benchmark id is required").WithField("field", "benchmark_id")
	}

	content, err := s.store.Get(ctx, benchmarkID)
	if err != nil {
		return recommendation.Content{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load recommendation content", err)
	}
	if content == nil {
		return recommendation.Content{}, dErrors.New(dErrors.CodeNotFound, "no recommendation content for benchmark").WithField("benchmark_id", benchmarkID)
	}
	return *content, nil
}
