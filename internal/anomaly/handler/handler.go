package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carbonledger/internal/anomaly"
	"carbonledger/internal/platform/middleware"
	"carbonledger/internal/transport/http/shared"
	dErrors "carbonledger/pkg/domain-errors"
)

// Service defines the interface for anomaly operations.
type Service interface {
	RunScan(ctx context.Context) (anomaly.ScanReport, error)
	List(ctx context.Context, filter anomaly.ListFilter) ([]anomaly.Record, error)
	SetStatus(ctx context.Context, id string, status anomaly.Status, note string) (anomaly.Record, error)
}

// Handler handles anomaly endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the anomaly routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/anomalies/scan", h.handleScan)
	r.Get("/anomalies", h.handleList)
	r.Patch("/anomalies/{id}/status", h.handleSetStatus)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.service.RunScan(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "anomaly scan failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := anomaly.ListFilter{
		Status:   anomaly.Status(r.URL.Query().Get("status")),
		Severity: anomaly.Severity(r.URL.Query().Get("severity")),
	}
	records, err := h.service.List(ctx, filter)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeInvalidInput) {
			h.logger.ErrorContext(ctx, "failed to list anomaly records",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"anomalies": records})
}

type setStatusRequest struct {
	Status         anomaly.Status `json:"status"`
	ResolutionNote string         `json:"resolution_note"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid anomaly status request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.service.SetStatus(ctx, chi.URLParam(r, "id"), req.Status, req.ResolutionNote)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) || dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update anomaly status",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}
