package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/fragment"
	"carbonledger/internal/fragment/service"
	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/transport/http/shared"
	dErrors "carbonledger/pkg/domain-errors"
)

// Service defines the interface for fragment operations.
type Service interface {
	Ingest(ctx context.Context, documentID string, page int, period string, batch []service.IngestFragment) ([]fragment.Fragment, error)
	PageView(ctx context.Context, documentID string, page int) (fragment.Selection, error)
}

// Handler handles fragment ingest and page-view endpoints.
type Handler struct {
	logger        *slog.Logger
	service       Service
	defaultPeriod string
}

func New(svc Service, logger *slog.Logger, defaultPeriod string) *Handler {
	return &Handler{logger: logger, service: svc, defaultPeriod: defaultPeriod}
}

// Register registers the fragment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents/{documentID}/pages/{page}/fragments", h.handleIngest)
	r.Get("/documents/{documentID}/pages/{page}/fragments", h.handlePageView)
}

type ingestRequest struct {
	// Period attributes the write to a reporting period for lock checks.
	// Empty means the currently open reporting period.
	Period    string                   `json:"period"`
	Fragments []service.IngestFragment `json:"fragments"`
}

type ingestResponse struct {
	Ingested  int                 `json:"ingested"`
	Fragments []fragment.Fragment `json:"fragments"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	documentID := chi.URLParam(r, "documentID")
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "page must be an integer").WithField("field", "page"))
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid ingest request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	period := req.Period
	if period == "" {
		period = h.defaultPeriod
	}

	fragments, err := h.service.Ingest(ctx, documentID, page, period, req.Fragments)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) || dErrors.Is(err, dErrors.CodeLocked) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to ingest fragments",
			"request_id", requestID,
			"document_id", documentID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, ingestResponse{
		Ingested:  len(fragments),
		Fragments: fragments,
	})
}

func (h *Handler) handlePageView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	documentID := chi.URLParam(r, "documentID")
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "page must be an integer").WithField("field", "page"))
		return
	}

	selection, err := h.service.PageView(ctx, documentID, page)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeInvalidInput) {
			h.logger.ErrorContext(ctx, "failed to build page view",
				"request_id", middleware.GetRequestID(ctx),
				"document_id", documentID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, selection)
}
