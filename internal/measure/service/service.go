package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carbonledger/internal/audit"
	"carbonledger/internal/measure"
	dErrors "carbonledger/pkg/domain-errors"
)

// Store persists measured values.
type Store interface {
	Create(ctx context.Context, value measure.MeasuredValue) error
	ListBySupplier(ctx context.Context, supplierID string) ([]measure.MeasuredValue, error)
	ListAll(ctx context.Context) ([]measure.MeasuredValue, error)
}

// Gate denies mutations attributed to a locked reporting period.
type Gate interface {
	Check(ctx context.Context, period string) error
}

// Service ingests and lists measured business values.
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

// Ingest validates and persists one measured value.
func (s *Service) Ingest(ctx context.Context, req measure.IngestRequest) (measure.MeasuredValue, error) {
	switch {
	case req.SupplierID == "":
		return measure.MeasuredValue{}, dErrors.New(dErrors.CodeInvalidInput, "supplier id is required").WithField("field", "supplier_id")
	case req.FieldKey == "":
		return measure.MeasuredValue{}, dErrors.New(dErrors.CodeInvalidInput, "field key is required").WithField("field", "field_key")
	case req.Unit == "":
		return measure.MeasuredValue{}, dErrors.New(dErrors.CodeInvalidInput, "unit is required").WithField("field", "unit")
	}
	quality := req.Quality
	if quality == "" {
		quality = measure.QualityMedium
	}
	if !quality.IsValid() {
		return measure.MeasuredValue{}, dErrors.New(dErrors.CodeInvalidInput, "quality must be high, medium or low").WithField("field", "quality")
	}

	period := req.Period
	if period == "" {
		period = s.defaultPeriod
	}
	if err := s.gate.Check(ctx, period); err != nil {
		return measure.MeasuredValue{}, err
	}

	value := measure.MeasuredValue{
		ID:               "mv_" + uuid.NewString(),
		SupplierID:       req.SupplierID,
		Category:         req.Category,
		FieldKey:         req.FieldKey,
		Value:            req.Value,
		Unit:             req.Unit,
		Quality:          quality,
		Period:           period,
		RequiresEvidence: req.RequiresEvidence,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.Create(ctx, value); err != nil {
		return measure.MeasuredValue{}, dErrors.Wrap(dErrors.CodeInternal, "failed to create measured value", err)
	}

	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionMeasureRecorded,
		Subject: value.ID,
		Period:  value.Period,
		Details: map[string]string{
			"supplier_id": value.SupplierID,
			"field_key":   value.FieldKey,
		},
	})
	s.logger.InfoContext(ctx, "measured value ingested",
		"measure_id", value.ID,
		"supplier_id", value.SupplierID,
		"field_key", value.FieldKey,
	)
	return value, nil
}

// List returns measured values, optionally scoped to one supplier.
func (s *Service) List(ctx context.Context, supplierID string) ([]measure.MeasuredValue, error) {
	var (
		values []measure.MeasuredValue
		err    error
	)
	if supplierID == "" {
		values, err = s.store.ListAll(ctx)
	} else {
		values, err = s.store.ListBySupplier(ctx, supplierID)
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list measured values", err)
	}
	return values, nil
}
