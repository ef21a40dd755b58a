package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/engagement"
	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/transport/http/shared"
	dErrors "carbonledger/pkg/domain-errors"
)

// Service defines the interface for engagement operations.
type Service interface {
	Update(ctx context.Context, supplierID string, req engagement.UpdateRequest) (engagement.Engagement, error)
	Get(ctx context.Context, supplierID string) (engagement.Engagement, error)
	List(ctx context.Context) ([]engagement.Engagement, error)
}

// Handler handles engagement endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the engagement routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/engagements", h.handleList)
	r.Get("/engagements/{supplierID}", h.handleGet)
	r.Put("/engagements/{supplierID}", h.handleUpdate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	engagements, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list engagements",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"engagements": engagements})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eng, err := h.service.Get(ctx, chi.URLParam(r, "supplierID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, eng)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req engagement.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid engagement update request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	eng, err := h.service.Update(ctx, chi.URLParam(r, "supplierID"), req)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) || dErrors.Is(err, dErrors.CodeLocked) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update engagement",
			"request_id", requestID,
			"supplier_id", chi.URLParam(r, "supplierID"),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, eng)
}
