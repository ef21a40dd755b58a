package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/recommendation"
	"carbonledger/internal/transport/http/shared"
	dErrors "carbonledger/pkg/domain-errors"
)

// Service defines the interface for recommendation content operations.
type Service interface {
	Upsert(ctx context.Context, benchmarkID string, req recommendation.UpsertRequest) (recommendation.Content, error)
	Get(ctx context.Context, benchmarkID string) (recommendation.Content, error)
}

// Handler handles recommendation content endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the recommendation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/recommendations/{benchmarkID}", h.handleGet)
	r.Put("/recommendations/{benchmarkID}", h.handleUpsert)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	content, err := h.service.Get(ctx, chi.URLParam(r, "benchmarkID"))
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) && !dErrors.Is(err, dErrors.CodeInvalidInput) {
			h.logger.ErrorContext(ctx, "failed to load recommendation content",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, content)
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req recommendation.UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid recommendation upsert request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	content, err := h.service.Upsert(ctx, chi.URLParam(r, "benchmarkID"), req)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) || dErrors.Is(err, dErrors.CodeLocked) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to save recommendation content",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, content)
}
