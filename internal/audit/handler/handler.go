package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/audit"
	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/transport/http/shared"
)

// Handler exposes the audit trail. Read-only and operator-facing; expected
// to sit behind the admin middleware.
type Handler struct {
	logger *slog.Logger
	store  audit.Store
}

func New(store audit.Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register registers the audit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.store.List(ctx, r.URL.Query().Get("actor"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
