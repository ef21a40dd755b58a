package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	anomalyHandler "carbonledger/internal/anomaly/handler"
	auditHandler "carbonledger/internal/audit/handler"
	engagementHandler "carbonledger/internal/engagement/handler"
	fragmentHandler "carbonledger/internal/fragment/handler"
	measureHandler "carbonledger/internal/measure/handler"
	periodlockHandler "carbonledger/internal/periodlock/handler"
	"carbonledger/internal/platform/metrics"
	"carbonledger/internal/platform/middleware"
	provenanceHandler "carbonledger/internal/provenance/handler"
	recommendationHandler "carbonledger/internal/recommendation/handler"
	supplierHandler "carbonledger/internal/supplier/handler"
)

const requestTimeout = 30 * time.Second

// Handlers bundles the per-module route registrars the router mounts.
type Handlers struct {
	Fragments       *fragmentHandler.Handler
	Provenance      *provenanceHandler.Handler
	Anomalies       *anomalyHandler.Handler
	Measures        *measureHandler.Handler
	Suppliers       *supplierHandler.Handler
	Engagements     *engagementHandler.Handler
	Recommendations *recommendationHandler.Handler
	PeriodLocks     *periodlockHandler.Handler
	Audit           *auditHandler.Handler
}

// Config carries the cross-cutting pieces the router needs beyond handlers.
type Config struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	JWTValidator middleware.JWTValidator
	AdminKeyHash string
}

// NewRouter assembles the full route tree. Three tiers: unauthenticated
// health and metrics, bearer-token API routes, and admin routes keyed by
// X-Admin-Key (period locks, seeding, audit reads).
func NewRouter(cfg Config, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(cfg.JWTValidator, cfg.Logger))
		h.Fragments.Register(api)
		h.Provenance.Register(api)
		h.Anomalies.Register(api)
		h.Measures.Register(api)
		h.Suppliers.Register(api)
		h.Engagements.Register(api)
		h.Recommendations.Register(api)
	})

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(cfg.AdminKeyHash, cfg.Logger))
		h.PeriodLocks.Register(admin)
		h.Audit.Register(admin)
		h.Suppliers.RegisterAdmin(admin)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
