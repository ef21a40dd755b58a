package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"carbonledger/internal/anomaly"
	anomalyHandler "carbonledger/internal/anomaly/handler"
	"carbonledger/internal/audit"
	auditHandler "carbonledger/internal/audit/handler"
	engagementHandler "carbonledger/internal/engagement/handler"
	engagementService "carbonledger/internal/engagement/service"
	engagementStore "carbonledger/internal/engagement/store"
	fragmentHandler "carbonledger/internal/fragment/handler"
	fragmentService "carbonledger/internal/fragment/service"
	fragmentStore "carbonledger/internal/fragment/store"
	"carbonledger/internal/jwtauth"
	measureHandler "carbonledger/internal/measure/handler"
	measureService "carbonledger/internal/measure/service"
	measureStore "carbonledger/internal/measure/store"
	periodlockHandler "carbonledger/internal/periodlock/handler"
	periodlockService "carbonledger/internal/periodlock/service"
	periodlockStore "carbonledger/internal/periodlock/store"
	"carbonledger/internal/platform/config"
	"carbonledger/internal/platform/httpserver"
	"carbonledger/internal/platform/logger"
	"carbonledger/internal/platform/metrics"
	platformredis "carbonledger/internal/platform/redis"
	provenanceHandler "carbonledger/internal/provenance/handler"
	provenanceService "carbonledger/internal/provenance/service"
	provenanceStore "carbonledger/internal/provenance/store"
	recommendationHandler "carbonledger/internal/recommendation/handler"
	recommendationService "carbonledger/internal/recommendation/service"
	recommendationStore "carbonledger/internal/recommendation/store"
	supplierHandler "carbonledger/internal/supplier/handler"
	supplierService "carbonledger/internal/supplier/service"
	supplierStore "carbonledger/internal/supplier/store"
	httptransport "carbonledger/internal/transport/http"
)

const (
	auditInboxSize  = 1024
	shutdownTimeout = 10 * time.Second
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err.Error())
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores. Postgres when a DSN is configured, memory otherwise; the
	// period lock prefers Redis so locks are shared across replicas.
	var (
		lockSt  periodlockService.Store
		fragSt  fragmentService.Store
		provSt  provenanceService.Store
		measSt  measureService.Store
		benchSt supplierService.Store
		engSt   engagementService.Store
		recSt   recommendationService.Store
		anomSt  anomaly.Store
		audSt   audit.Store
	)
	switch {
	case db != nil:
		fragSt = fragmentStore.NewPostgres(db)
		provSt = provenanceStore.NewPostgres(db)
		measSt = measureStore.NewPostgres(db)
		benchSt = supplierStore.NewPostgres(db)
		engSt = engagementStore.NewPostgres(db)
		recSt = recommendationStore.NewPostgres(db)
		anomSt = anomaly.NewPostgresStore(db)
		audSt = audit.NewPostgres(db)
		lockSt = periodlockStore.NewPostgres(db)
	default:
		log.Warn("no postgres DSN configured, using in-memory stores")
		fragSt = fragmentStore.NewMemory()
		provSt = provenanceStore.NewMemory()
		measSt = measureStore.NewMemory()
		benchSt = supplierStore.NewMemory()
		engSt = engagementStore.NewMemory()
		recSt = recommendationStore.NewMemory()
		anomSt = anomaly.NewMemoryStore()
		audSt = audit.NewMemoryStore()
		lockSt = periodlockStore.NewMemory()
	}
	if redisClient != nil {
		lockSt = periodlockStore.NewRedis(redisClient)
	}

	m := metrics.New()

	publisher := audit.NewPublisher(auditInboxSize, log)
	auditWorker := audit.NewWorker(audSt, publisher.Inbox(), log)
	go func() {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err.Error())
		}
	}()

	gate := periodlockService.New(lockSt, log, publisher)

	anomalySvc := anomaly.NewService(
		anomSt,
		anomaly.Catalog(),
		anomaly.Thresholds{
			StalenessWindow:     cfg.Scan.StalenessWindow,
			MinEvidenceChunks:   cfg.Scan.MinEvidenceChunks,
			HighImpactThreshold: cfg.Scan.HighImpactThreshold,
		},
		anomaly.Sources{
			Measures:        measSt,
			Provenance:      provSt,
			Benchmarks:      benchSt,
			Engagements:     engSt,
			Recommendations: recSt,
		},
		log, m, publisher,
	)

	jwtService := jwtauth.New(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := httptransport.NewRouter(
		httptransport.Config{
			Logger:       log,
			Metrics:      m,
			JWTValidator: jwtService,
			AdminKeyHash: cfg.AdminKeyHash,
		},
		httptransport.Handlers{
			Fragments:       fragmentHandler.New(fragmentService.New(fragSt, gate, log, m, publisher), log, cfg.CurrentPeriod),
			Provenance:      provenanceHandler.New(provenanceService.New(provSt, gate, log, m, publisher, cfg.CurrentPeriod), log),
			Anomalies:       anomalyHandler.New(anomalySvc, log),
			Measures:        measureHandler.New(measureService.New(measSt, gate, log, publisher, cfg.CurrentPeriod), log),
			Suppliers:       supplierHandler.New(supplierService.New(benchSt, gate, log, publisher, cfg.CurrentPeriod), log),
			Engagements:     engagementHandler.New(engagementService.New(engSt, gate, log, publisher, cfg.CurrentPeriod), log),
			Recommendations: recommendationHandler.New(recommendationService.New(recSt, gate, log, publisher, cfg.CurrentPeriod), log),
			PeriodLocks:     periodlockHandler.New(gate, log),
			Audit:           auditHandler.New(audSt, log),
		},
	)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting carbonledger", "addr", cfg.Addr, "period", cfg.CurrentPeriod)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
