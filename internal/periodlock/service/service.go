package service

import (
	"context"
	"log/slog"
	"time"

	"carbonledger/internal/audit"
	"carbonledger/internal/periodlock"
	dErrors "carbonledger/pkg/domain-errors"
)

// Store persists period lock state. Get returns (nil, nil) when no state has
// ever been written for the period; an unwritten period is open.
type Store interface {
	Get(ctx context.Context, period string) (*periodlock.Lock, error)
	Set(ctx context.Context, lock periodlock.Lock) error
	List(ctx context.Context) ([]periodlock.Lock, error)
}

// Service is the mutation gate. Every state-mutating operation consults
// Check before persisting; the deny is a CodeLocked domain error carrying the
// period name so callers can surface 423 with actionable detail.
type Service struct {
	store  Store
	logger *slog.Logger
	audit  *audit.Publisher
}

func New(store Store, logger *slog.Logger, aud *audit.Publisher) *Service {
	return &Service{store: store, logger: logger, audit: aud}
}

// Check returns nil when writes for the period are allowed. The check is a
// single synchronous read-then-decide; a lock landing immediately after a
// passing check is an accepted, auditable window, not a target invariant.
func (s *Service) Check(ctx context.Context, period string) error {
	if period == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "period is required").WithField("field", "period")
	}
	lock, err := s.store.Get(ctx, period)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to read period lock", err)
	}
	if lock != nil && lock.IsLocked() {
		return dErrors.New(dErrors.CodeLocked, "reporting period is locked").WithField("period", period)
	}
	return nil
}

// Get returns the lock state for a period, defaulting to open when the
// period has never been written.
func (s *Service) Get(ctx context.Context, period string) (periodlock.Lock, error) {
	if period == "" {
		return periodlock.Lock{}, dErrors.New(dErrors.CodeInvalidInput, "period is required").WithField("field", "period")
	}
	lock, err := s.store.Get(ctx, period)
	if err != nil {
		return periodlock.Lock{}, dErrors.Wrap(dErrors.CodeInternal, "failed to read period lock", err)
	}
	if lock == nil {
		return periodlock.Lock{Period: period, Status: periodlock.StatusOpen}, nil
	}
	return *lock, nil
}

// SetStatus transitions a period between open and locked. Last write wins;
// there is no approval workflow in this core.
func (s *Service) SetStatus(ctx context.Context, period string, status periodlock.Status) (periodlock.Lock, error) {
	if period == "" {
		return periodlock.Lock{}, dErrors.New(dErrors.CodeInvalidInput, "period is required").WithField("field", "period")
	}
	if !status.IsValid() {
		return periodlock.Lock{}, dErrors.New(dErrors.CodeInvalidInput, "status must be open or locked").WithField("field", "status")
	}

	lock := periodlock.Lock{
		Period:    period,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Set(ctx, lock); err != nil {
		return periodlock.Lock{}, dErrors.Wrap(dErrors.CodeInternal, "failed to write period lock", err)
	}

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionPeriodLockChanged,
		Subject: period,
		Period:  period,
		Details: map[string]string{"status": string(status)},
	})
	s.logger.InfoContext(ctx, "period lock state changed",
		"period", period,
		"status", string(status),
	)
	return lock, nil
}

// List returns all periods that have explicit lock state.
func (s *Service) List(ctx context.Context) ([]periodlock.Lock, error) {
	locks, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list period locks", err)
	}
	return locks, nil
}
