package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carbonledger/internal/audit"
	"carbonledger/internal/platform/metrics"
	"carbonledger/internal/provenance"
	dErrors "carbonledger/pkg/domain-errors"
)

// Store persists provenance records. Get returns (nil, nil) when the id is
// unknown so Delete can stay idempotent.
type Store interface {
	Create(ctx context.Context, record provenance.Record) error
	Get(ctx context.Context, id string) (*provenance.Record, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]provenance.Record, error)
	ListAll(ctx context.Context) ([]provenance.Record, error)
	Delete(ctx context.Context, id string) error
}

// Gate denies mutations attributed to a locked reporting period.
type Gate interface {
	Check(ctx context.Context, period string) error
}

// Service links entity field values to their supporting evidence fragments.
type Service struct {
	store         Store
	gate          Gate
	logger        *slog.Logger
	metrics       *metrics.Metrics
	audit         *audit.Publisher
	defaultPeriod string
}

func New(store Store, gate Gate, logger *slog.Logger, m *metrics.Metrics, aud *audit.Publisher, defaultPeriod string) *Service {
	return &Service{store: store, gate: gate, logger: logger, metrics: m, audit: aud, defaultPeriod: defaultPeriod}
}

// Create validates and persists a new evidence link.
func (s *Service) Create(ctx context.Context, req provenance.CreateRequest) (provenance.Record, error) {
	if err := validateCreate(req); err != nil {
		return provenance.Record{}, err
	}

	period := req.Period
	if period == "" {
		period = s.defaultPeriod
	}
	if err := s.gate.Check(ctx, period); err != nil {
		if dErrors.Is(err, dErrors.CodeLocked) {
			s.metrics.IncLockedRejection("provenance_create")
		}
		return provenance.Record{}, err
	}

	record := provenance.Record{
		ID:                  "prov_" + uuid.NewString(),
		EntityType:          req.EntityType,
		EntityID:            req.EntityID,
		FieldKey:            req.FieldKey,
		FieldLabel:          req.FieldLabel,
		Value:               req.Value,
		Unit:                req.Unit,
		DocumentID:          req.DocumentID,
		PageNumber:          req.PageNumber,
		Box:                 req.Box,
		FragmentIDs:         req.FragmentIDs,
		ExtractionRequestID: req.ExtractionRequestID,
		Notes:               req.Notes,
		Period:              period,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		return provenance.Record{}, dErrors.Wrap(dErrors.CodeInternal, "failed to create provenance record", err)
	}

	if s.metrics != nil {
		s.metrics.ProvenanceCreated.Inc()
	}
	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionProvenanceCreated,
		Subject: record.ID,
		Period:  record.Period,
		Details: map[string]string{
			"entity_type": record.EntityType,
			"entity_id":   record.EntityID,
			"field_key":   record.FieldKey,
		},
	})
	s.logger.InfoContext(ctx, "provenance record created",
		"provenance_id", record.ID,
		"entity_type", record.EntityType,
		"entity_id", record.EntityID,
		"field_key", record.FieldKey,
	)
	return record, nil
}

// List returns all evidence links for one entity, newest first.
func (s *Service) List(ctx context.Context, entityType, entityID string) ([]provenance.Record, error) {
	if entityType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "entity type is required").WithField("field", "entity_type")
	}
	if entityID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "entity id is required").WithField("field", "entity_id")
	}

	records, err := s.store.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list provenance records", err)
	}
	return records, nil
}

// Delete removes an evidence link. Deleting an unknown id succeeds; the
// caller's intent (the link does not exist) already holds. A known record is
// gate-checked against its own period before removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "provenance id is required").WithField("field", "id")
	}

	record, err := s.store.Get(ctx, id)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to load provenance record", err)
	}
	if record == nil {
		return nil
	}
	if err := s.gate.Check(ctx, record.Period); err != nil {
		if dErrors.Is(err, dErrors.CodeLocked) {
			s.metrics.IncLockedRejection("provenance_delete")
		}
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to delete provenance record", err)
	}

	if s.metrics != nil {
		s.metrics.ProvenanceDeleted.Inc()
	}
	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionProvenanceDeleted,
		Subject: id,
		Period:  record.Period,
	})
	s.logger.InfoContext(ctx, "provenance record deleted", "provenance_id", id)
	return nil
}

func validateCreate(req provenance.CreateRequest) error {
	switch {
	case req.EntityType == "":
		return dErrors.New(dErrors.CodeInvalidInput, "entity type is required").WithField("field", "entity_type")
	case req.EntityID == "":
		return dErrors.New(dErrors.CodeInvalidInput, "entity id is required").WithField("field", "entity_id")
	case req.FieldKey == "":
		return dErrors.New(dErrors.CodeInvalidInput, "field key is required").WithField("field", "field_key")
	case req.DocumentID == "":
		return dErrors.New(dErrors.CodeInvalidInput, "document id is required").WithField("field", "document_id")
	case req.PageNumber < 1:
		return dErrors.New(dErrors.CodeInvalidInput, "page number must be positive").WithField("field", "page_number")
	case len(req.FragmentIDs) == 0:
		return dErrors.New(dErrors.CodeInvalidInput, "at least one fragment id is required").WithField("field", "fragment_ids")
	}
	for _, fid := range req.FragmentIDs {
		if fid == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "fragment ids must be non-empty").WithField("field", "fragment_ids")
		}
	}
	return nil
}
