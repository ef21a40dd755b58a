package service

import (
	"context"
	"log/slog"
	"time"

	"carbonledger/internal/audit"
	"carbonledger/internal/engagement"
	dErrors "carbonledger/pkg/domain-errors"
)

// Store persists engagements keyed by supplier id. Get returns (nil, nil)
// for suppliers that were never engaged.
type Store interface {
	Get(ctx context.Context, supplierID string) (*engagement.Engagement, error)
	Set(ctx context.Context, eng engagement.Engagement) error
	List(ctx context.Context) ([]engagement.Engagement, error)
}

// Gate denies mutations attributed to a locked reporting period.
type Gate interface {
	Check(ctx context.Context, period string) error
}

// Service tracks supplier engagement state.
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

// Update sets a supplier's engagement state and appends the transition to
// its history.
func (s *Service) Update(ctx context.Context, supplierID string, req engagement.UpdateRequest) (engagement.Engagement, error) {
	if supplierID == "" {
		return engagement.Engagement{}, dErrors.New(dErrors.CodeInvalidInput, "supplier id is required").WithField("field", "supplier_id")
	}
	if !req.Status.IsValid() {
		return engagement.Engagement{}, dErrors.New(dErrors.CodeInvalidInput, "unknown engagement status").WithField("field", "status")
	}

	period := req.Period
	if period == "" {
		period = s.defaultPeriod
	}
	if err := s.gate.Check(ctx, period); err != nil {
		return engagement.Engagement{}, err
	}

	current, err := s.store.Get(ctx, supplierID)
	if err != nil {
		return engagement.Engagement{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load engagement", err)
	}

	now := time.Now().UTC()
	eng := engagement.Engagement{
		SupplierID:     supplierID,
		Status:         req.Status,
		Notes:          req.Notes,
		NextActionDate: req.NextActionDate,
		UpdatedAt:      now,
	}
	if current != nil {
		eng.History = current.History
	}
	eng.History = append(eng.History, engagement.HistoryEntry{
		Status:    req.Status,
		Notes:     req.Notes,
		ChangedAt: now,
	})

	if err := s.store.Set(ctx, eng); err != nil {
		return engagement.Engagement{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save engagement", err)
	}

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionEngagementUpdated,
		Subject: supplierID,
		Period:  period,
		Details: map[string]string{"status": string(req.Status)},
	})
	s.logger.InfoContext(ctx, "engagement updated",
		"supplier_id", supplierID,
		"status", string(req.Status),
	)
	return eng, nil
}

// Get returns the engagement for a supplier, defaulting to not_started when
// none has been recorded.
func (s *Service) Get(ctx context.Context, supplierID string) (engagement.Engagement, error) {
	if supplierID == "" {
		return engagement.Engagement{}, dErrors.New(dErrors.CodeInvalidInput, "supplier id is required").WithField("field", "supplier_id")
	}

	eng, err := s.store.Get(ctx, supplierID)
	if err != nil {
		return engagement.Engagement{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load engagement", err)
	}
	if eng == nil {
		return engagement.Engagement{
			SupplierID: supplierID,
			Status:     engagement.StatusNotStarted,
			History:    []engagement.HistoryEntry{},
		}, nil
	}
	return *eng, nil
}

// List returns all recorded engagements.
func (s *Service) List(ctx context.Context) ([]engagement.Engagement, error) {
	engagements, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list engagements", err)
	}
	return engagements, nil
}
