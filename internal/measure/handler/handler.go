package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/measure"
	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/transport/http/shared"
	dErrors "carbonledger/pkg/domain-errors"
)

// Service defines the interface for measured value operations.
type Service interface {
	Ingest(ctx context.Context, req measure.IngestRequest) (measure.MeasuredValue, error)
	List(ctx context.Context, supplierID string) ([]measure.MeasuredValue, error)
}

// Handler handles measured value endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the measure routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/measures", h.handleIngest)
	r.Get("/measures", h.handleList)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req measure.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid measure ingest request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	value, err := h.service.Ingest(ctx, req)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) || dErrors.Is(err, dErrors.CodeLocked) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to ingest measured value",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, value)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	values, err := h.service.List(ctx, r.URL.Query().Get("supplier_id"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list measured values",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"measures": values})
}
