package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/supplier"
	"carbonledger/internal/supplier/service"
	"carbonledger/internal/transport/http/shared"
	dErrors "carbonledger/pkg/domain-errors"
)

// Service defines the interface for supplier benchmark operations.
type Service interface {
	Seed(ctx context.Context) (int, error)
	List(ctx context.Context, filter service.ListFilter) ([]supplier.Benchmark, error)
}

// Handler handles supplier benchmark endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: svc}
}

// Register registers the supplier routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/suppliers", h.handleList)
}

// RegisterAdmin registers the seed route; the router places it behind the
// admin middleware. The seed lives on the same /suppliers prefix as the list
// but must not shadow it, so it registers a single concrete route rather
// than mounting a subrouter.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/suppliers/seed", h.handleSeed)
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.service.Seed(ctx)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeLocked) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to seed benchmarks",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "benchmark data seeded",
		"count":   count,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := service.ListFilter{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("min_impact"); raw != "" {
		minImpact, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "min_impact must be a number").WithField("field", "min_impact"))
			return
		}
		filter.MinImpact = minImpact
	}

	benchmarks, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list benchmarks",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"suppliers": benchmarks})
}
