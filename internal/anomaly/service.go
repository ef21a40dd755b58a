package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carbonledger/internal/audit"
	"carbonledger/internal/engagement"
	"carbonledger/internal/measure"
	"carbonledger/internal/platform/metrics"
	"carbonledger/internal/provenance"
	"carbonledger/internal/recommendation"
	"carbonledger/internal/supplier"
	dErrors "carbonledger/pkg/domain-errors"
)

// Snapshot sources. Declared here so any store satisfying the listing shape
// can feed a scan.
type (
	MeasureSource interface {
		ListAll(ctx context.Context) ([]measure.MeasuredValue, error)
	}
	ProvenanceSource interface {
		ListAll(ctx context.Context) ([]provenance.Record, error)
	}
	BenchmarkSource interface {
		List(ctx context.Context) ([]supplier.Benchmark, error)
	}
	EngagementSource interface {
		List(ctx context.Context) ([]engagement.Engagement, error)
	}
	RecommendationSource interface {
		List(ctx context.Context) ([]recommendation.Content, error)
	}
)

// Sources bundles the snapshot inputs a scan reads from.
type Sources struct {
	Measures        MeasureSource
	Provenance      ProvenanceSource
	Benchmarks      BenchmarkSource
	Engagements     EngagementSource
	Recommendations RecommendationSource
}

// Service runs the deterministic anomaly scan and manages record lifecycle.
// Status updates are deliberately not gate-checked: they are operator
// annotations, not reporting-period data.
type Service struct {
	store           Store
	rules           []Rule
	thresholds      Thresholds
	measures        MeasureSource
	provenance      ProvenanceSource
	benchmarks      BenchmarkSource
	engagements     EngagementSource
	recommendations RecommendationSource
	logger          *slog.Logger
	metrics         *metrics.Metrics
	audit           *audit.Publisher
}

func NewService(store Store, rules []Rule, thresholds Thresholds, sources Sources, logger *slog.Logger, m *metrics.Metrics, aud *audit.Publisher) *Service {
	return &Service{
		store:           store,
		rules:           rules,
		thresholds:      thresholds,
		measures:        sources.Measures,
		provenance:      sources.Provenance,
		benchmarks:      sources.Benchmarks,
		engagements:     sources.Engagements,
		recommendations: sources.Recommendations,
		logger:          logger,
		metrics:         m,
		audit:           aud,
	}
}

// RunScan evaluates every rule against a fresh snapshot and upserts the
// findings. A failing rule is logged and counted but never aborts the scan.
func (s *Service) RunScan(ctx context.Context) (ScanReport, error) {
	started := time.Now().UTC()

	snap, err := s.gatherSnapshot(ctx)
	if err != nil {
		return ScanReport{}, dErrors.Wrap(dErrors.CodeInternal, "failed to gather scan snapshot", err)
	}

	var report ScanReport
	for _, rule := range s.rules {
		findings, ruleErr := s.evaluateRule(rule, snap)
		if ruleErr != nil {
			report.RulesFailed++
			report.FailedRules = append(report.FailedRules, rule.ID)
			s.metrics.IncRuleFailure(rule.ID)
			s.logger.WarnContext(ctx, "anomaly rule failed",
				"rule_id", rule.ID,
				"error", ruleErr.Error(),
			)
			continue
		}
		report.RulesSucceeded++

		for _, finding := range findings {
			now := time.Now().UTC()
			changed, err := s.store.Upsert(ctx, Record{
				ID:          DeterministicID(rule.ID, finding.SubjectType, finding.SubjectID),
				RuleID:      rule.ID,
				Severity:    rule.Severity,
				SubjectType: finding.SubjectType,
				SubjectID:   finding.SubjectID,
				Message:     finding.Message,
				FixHint:     finding.FixHint,
				Details:     finding.Details,
				Status:      StatusOpen,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return ScanReport{}, dErrors.Wrap(dErrors.CodeInternal, "failed to upsert anomaly record", err)
			}
			if changed {
				report.Upserted++
			}
		}
	}

	completed := time.Now().UTC()
	if err := s.store.RecordScan(ctx, ScanRun{
		ID:          "scan_" + uuid.NewString(),
		StartedAt:   started,
		CompletedAt: completed,
		Upserted:    report.Upserted,
		RulesFailed: report.RulesFailed,
	}); err != nil {
		return ScanReport{}, dErrors.Wrap(dErrors.CodeInternal, "failed to record scan run", err)
	}

	if s.metrics != nil {
		s.metrics.ScansRun.Inc()
		s.metrics.AnomaliesUpserted.Add(float64(report.Upserted))
		s.metrics.ScanDuration.Observe(completed.Sub(started).Seconds())
	}
	s.logger.InfoContext(ctx, "anomaly scan completed",
		"upserted", report.Upserted,
		"rules_succeeded", report.RulesSucceeded,
		"rules_failed", report.RulesFailed,
		"duration", completed.Sub(started).String(),
	)
	return report, nil
}

// evaluateRule runs one rule with panic isolation.
func (s *Service) evaluateRule(rule Rule, snap Snapshot) (findings []Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Evaluate(snap), nil
}

// List returns anomaly records matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	if filter.Status != "" && filter.Status != StatusOpen && !filter.Status.IsValidTarget() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown status filter").WithField("field", "status")
	}
	if filter.Severity != "" && filter.Severity != SeverityHigh && filter.Severity != SeverityMedium && filter.Severity != SeverityLow {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown severity filter").WithField("field", "severity")
	}

	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list anomaly records", err)
	}
	return records, nil
}

// SetStatus applies an operator transition to a record. Allowed regardless
// of any period lock.
func (s *Service) SetStatus(ctx context.Context, id string, status Status, note string) (Record, error) {
	if id == "" {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "anomaly id is required").WithField("field", "id")
	}
	if !status.IsValidTarget() {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "status must be ignored or resolved").WithField("field", "status")
	}

	record, err := s.store.SetStatus(ctx, id, status, note)
	if err != nil {
		return Record{}, dErrors.Wrap(dErrors.CodeInternal, "failed to update anomaly status", err)
	}
	if record == nil {
		return Record{}, dErrors.New(dErrors.CodeNotFound, "anomaly record not found").WithField("id", id)
	}

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionAnomalyStatusSet,
		Subject: id,
		Details: map[string]string{"status": string(status)},
	})
	s.logger.InfoContext(ctx, "anomaly status updated",
		"anomaly_id", id,
		"status", string(status),
	)
	return *record, nil
}
