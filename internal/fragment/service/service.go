package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"carbonledger/internal/audit"
	"carbonledger/internal/fragment"
	"carbonledger/internal/platform/metrics"
	dErrors "carbonledger/pkg/domain-errors"
)

// Store persists fragments per (document, page). Fragments are append-only;
// there is no update or delete.
type Store interface {
	Append(ctx context.Context, fragments []fragment.Fragment) error
	ListPage(ctx context.Context, documentID string, page int) ([]fragment.Fragment, error)
}

// Gate denies mutations attributed to a locked reporting period.
type Gate interface {
	Check(ctx context.Context, period string) error
}

// IngestFragment is one producer-supplied fragment in an ingest batch. The
// producer may omit created_at; ingest time is used then.
type IngestFragment struct {
	Text                string            `json:"text"`
	Box                 fragment.MaybeBox `json:"bounding_box"`
	ExtractionRequestID string            `json:"extraction_request_id"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Service ingests OCR fragments and serves the latest-attempt view of a page.
type Service struct {
	store   Store
	gate    Gate
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
}

func New(store Store, gate Gate, logger *slog.Logger, m *metrics.Metrics, aud *audit.Publisher) *Service {
	return &Service{store: store, gate: gate, logger: logger, metrics: m, audit: aud}
}

// Ingest appends a batch of fragments to a page. The write is attributed to a
// reporting period and denied while that period is locked.
func (s *Service) Ingest(ctx context.Context, documentID string, page int, period string, batch []IngestFragment) ([]fragment.Fragment, error) {
	if documentID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document id is required").WithField("field", "document_id")
	}
	if page < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "page number must be positive").WithField("field", "page")
	}
	if len(batch) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "fragment batch is empty").WithField("field", "fragments")
	}
	if err := s.gate.Check(ctx, period); err != nil {
		if dErrors.Is(err, dErrors.CodeLocked) {
			s.metrics.IncLockedRejection("fragment_ingest")
		}
		return nil, err
	}

	now := time.Now().UTC()
	fragments := make([]fragment.Fragment, len(batch))
	for i, in := range batch {
		createdAt := in.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		fragments[i] = fragment.Fragment{
			ID:                  "frg_" + uuid.NewString(),
			DocumentID:          documentID,
			PageNumber:          page,
			Text:                in.Text,
			Box:                 in.Box,
			ExtractionRequestID: in.ExtractionRequestID,
			CreatedAt:           createdAt,
		}
	}

	if err := s.store.Append(ctx, fragments); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to append fragments", err)
	}

	if s.metrics != nil {
		s.metrics.FragmentsIngested.Add(float64(len(fragments)))
	}
	s.audit.Emit(ctx, audit.Event{
		Action:  audit.ActionFragmentsIngested,
		Subject: documentID,
		Period:  period,
		Details: map[string]string{"page": strconv.Itoa(page), "count": strconv.Itoa(len(fragments))},
	})
	s.logger.InfoContext(ctx, "fragments ingested",
		"document_id", documentID,
		"page", page,
		"count", len(fragments),
	)
	return fragments, nil
}

// PageView returns the page's fragments restricted to the most recent
// extraction attempt, in normalized reading order.
func (s *Service) PageView(ctx context.Context, documentID string, page int) (fragment.Selection, error) {
	if documentID == "" {
		return fragment.Selection{}, dErrors.New(dErrors.CodeInvalidInput, "document id is required").WithField("field", "document_id")
	}
	if page < 1 {
		return fragment.Selection{}, dErrors.New(dErrors.CodeInvalidInput, "page number must be positive").WithField("field", "page")
	}

	fragments, err := s.store.ListPage(ctx, documentID, page)
	if err != nil {
		return fragment.Selection{}, dErrors.Wrap(dErrors.CodeInternal, "failed to list page fragments", err)
	}
	return fragment.LatestExtraction(fragments), nil
}
