package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/periodlock"
	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/transport/http/shared"
	dErrors "carbonledger/pkg/domain-errors"
)

// Service defines the interface for period lock operations.
type Service interface {
	Get(ctx context.Context, period string) (periodlock.Lock, error)
	SetStatus(ctx context.Context, period string, status periodlock.Status) (periodlock.Lock, error)
	List(ctx context.Context) ([]periodlock.Lock, error)
}

// Handler handles period lock endpoints. All routes here are operator-facing
// and are expected to sit behind the admin middleware.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the period lock routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/periods", h.handleList)
	r.Get("/periods/{period}/lock", h.handleGet)
	r.Put("/periods/{period}/lock", h.handleSet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	locks, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list period locks",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"periods": locks})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lock, err := h.service.Get(ctx, chi.URLParam(r, "period"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, lock)
}

type setLockRequest struct {
	Status periodlock.Status `json:"status"`
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req setLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid set lock request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	lock, err := h.service.SetStatus(ctx, chi.URLParam(r, "period"), req.Status)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to set period lock",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, lock)
}
