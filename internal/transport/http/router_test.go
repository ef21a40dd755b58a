package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

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
	"carbonledger/internal/platform/secrets"
	provenanceHandler "carbonledger/internal/provenance/handler"
	provenanceService "carbonledger/internal/provenance/service"
	provenanceStore "carbonledger/internal/provenance/store"
	recommendationHandler "carbonledger/internal/recommendation/handler"
	recommendationService "carbonledger/internal/recommendation/service"
	recommendationStore "carbonledger/internal/recommendation/store"
	supplierHandler "carbonledger/internal/supplier/handler"
	supplierService "carbonledger/internal/supplier/service"
	supplierStore "carbonledger/internal/supplier/store"
)

const (
	testPeriod   = "2026-Q1"
	testAdminKey = "test-admin-key"
)

type RouterSuite struct {
	suite.Suite
	router http.Handler
	token  string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	jwtService := jwtauth.New("test-signing-key", "carbonledger", "carbonledger-api")
	token, err := jwtService.GenerateAccessToken("auditor@example.com", "test-client", time.Hour)
	s.Require().NoError(err)
	s.token = token

	adminHash, err := secrets.HashAPIKey(testAdminKey)
	s.Require().NoError(err)

	publisher := audit.NewPublisher(64, logger)
	auditStore := audit.NewMemoryStore()

	gate := periodlockService.New(periodlockStore.NewMemory(), logger, publisher)

	measures := measureStore.NewMemory()
	provRecords := provenanceStore.NewMemory()
	benchmarks := supplierStore.NewMemory()
	engagements := engagementStore.NewMemory()
	recommendations := recommendationStore.NewMemory()

	anomalySvc := anomaly.NewService(
		anomaly.NewMemoryStore(),
		anomaly.Catalog(),
		anomaly.Thresholds{StalenessWindow: 24 * time.Hour, MinEvidenceChunks: 2, HighImpactThreshold: 2.0},
		anomaly.Sources{
			Measures:        measures,
			Provenance:      provRecords,
			Benchmarks:      benchmarks,
			Engagements:     engagements,
			Recommendations: recommendations,
		},
		logger, nil, publisher,
	)

	s.router = NewRouter(
		Config{
			Logger:       logger,
			Metrics:      nil,
			JWTValidator: jwtService,
			AdminKeyHash: adminHash,
		},
		Handlers{
			Fragments:       fragmentHandler.New(fragmentService.New(fragmentStore.NewMemory(), gate, logger, nil, publisher), logger, testPeriod),
			Provenance:      provenanceHandler.New(provenanceService.New(provRecords, gate, logger, nil, publisher, testPeriod), logger),
			Anomalies:       anomalyHandler.New(anomalySvc, logger),
			Measures:        measureHandler.New(measureService.New(measures, gate, logger, publisher, testPeriod), logger),
			Suppliers:       supplierHandler.New(supplierService.New(benchmarks, gate, logger, publisher, testPeriod), logger),
			Engagements:     engagementHandler.New(engagementService.New(engagements, gate, logger, publisher, testPeriod), logger),
			Recommendations: recommendationHandler.New(recommendationService.New(recommendations, gate, logger, publisher, testPeriod), logger),
			PeriodLocks:     periodlockHandler.New(gate, logger),
			Audit:           auditHandler.New(auditStore, logger),
		},
	)
}

func (s *RouterSuite) do(method, path string, body any, decorate func(*http.Request)) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) asUser(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
}

func (s *RouterSuite) asAdmin(req *http.Request) {
	req.Header.Set("X-Admin-Key", testAdminKey)
}

// ============================================================================
// Tiers
// ============================================================================

func (s *RouterSuite) TestHealthIsPublic() {
	rec := s.do(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (s *RouterSuite) TestAPIRequiresBearerToken() {
	rec := s.do(http.MethodGet, "/measures", nil, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/measures", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not-a-token")
	})
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/measures", nil, s.asUser)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestAdminRoutesRequireAdminKey() {
	rec := s.do(http.MethodGet, "/periods", nil, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	// A bearer token is not an admin key.
	rec = s.do(http.MethodGet, "/periods", nil, s.asUser)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/periods", nil, s.asAdmin)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestUnsupportedMediaTypeRejected() {
	rec := s.do(http.MethodPost, "/measures", nil, func(req *http.Request) {
		s.asUser(req)
		req.Header.Set("Content-Type", "text/plain")
	})
	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Period lock enforcement end to end
// ============================================================================

func (s *RouterSuite) lockPeriod(period, status string) {
	rec := s.do(http.MethodPut, "/periods/"+period+"/lock", map[string]string{"status": status}, s.asAdmin)
	s.Require().Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestLockedPeriodDeniesWritesAcrossModules() {
	s.lockPeriod(testPeriod, "locked")

	writes := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"measure ingest", http.MethodPost, "/measures", map[string]any{
			"supplier_id": "ppg_001", "field_key": "emissions_tco2e", "unit": "tCO2e", "value": 12.5,
		}},
		{"fragment ingest", http.MethodPost, "/documents/doc-1/pages/1/fragments", map[string]any{
			"fragments": []map[string]any{{"text": "Scope 3: 1250 tCO2e", "extraction_request_id": "req-1"}},
		}},
		{"provenance create", http.MethodPost, "/provenance", map[string]any{
			"entity_type": "measured_value", "entity_id": "mv-1", "field_key": "emissions_tco2e",
			"document_id": "doc-1", "page_number": 1, "fragment_ids": []string{"frg-1"},
		}},
		{"engagement update", http.MethodPut, "/engagements/ppg_001", map[string]any{
			"status": "in_progress",
		}},
		{"recommendation upsert", http.MethodPut, "/recommendations/bm_ppg_001", map[string]any{
			"headline": "Switch to green electricity",
		}},
	}
	for _, w := range writes {
		s.Run(w.name, func() {
			rec := s.do(w.method, w.path, w.body, s.asUser)
			s.Equal(http.StatusLocked, rec.Code)

			var resp struct {
				Error  string            `json:"error"`
				Fields map[string]string `json:"fields"`
			}
			s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
			s.Equal("period_locked", resp.Error)
			s.Equal(testPeriod, resp.Fields["period"])
		})
	}

	// The seed writes too, so the admin tier is gated as well.
	rec := s.do(http.MethodPost, "/suppliers/seed", nil, s.asAdmin)
	s.Equal(http.StatusLocked, rec.Code)

	// Reads stay open while the period is locked.
	reads := []struct {
		name string
		path string
	}{
		{"measure list", "/measures"},
		{"provenance list", "/provenance?entity_type=measured_value&entity_id=mv-1"},
		{"fragment page view", "/documents/doc-1/pages/1/fragments"},
		{"supplier list", "/suppliers"},
	}
	for _, rd := range reads {
		s.Run(rd.name, func() {
			rec := s.do(http.MethodGet, rd.path, nil, s.asUser)
			s.Equal(http.StatusOK, rec.Code)
		})
	}
}

func (s *RouterSuite) TestReopenedPeriodAcceptsWrites() {
	s.lockPeriod(testPeriod, "locked")
	s.lockPeriod(testPeriod, "open")

	rec := s.do(http.MethodPost, "/measures", map[string]any{
		"supplier_id": "ppg_001", "field_key": "emissions_tco2e", "unit": "tCO2e", "value": 12.5,
	}, s.asUser)
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *RouterSuite) TestLockOnOnePeriodLeavesOthersOpen() {
	s.lockPeriod("2025-Q4", "locked")

	rec := s.do(http.MethodPost, "/measures", map[string]any{
		"supplier_id": "ppg_001", "field_key": "emissions_tco2e", "unit": "tCO2e", "value": 12.5,
	}, s.asUser)
	s.Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/measures", map[string]any{
		"supplier_id": "ppg_001", "field_key": "emissions_tco2e", "unit": "tCO2e", "value": 12.5,
		"period": "2025-Q4",
	}, s.asUser)
	s.Equal(http.StatusLocked, rec.Code)
}

func (s *RouterSuite) TestAnomalyStatusUpdateAllowedWhileLocked() {
	rec := s.do(http.MethodPost, "/measures", map[string]any{
		"supplier_id": "ppg_001", "field_key": "emissions_tco2e", "unit": "tCO2e", "value": 12.5,
		"requires_evidence": true,
	}, s.asUser)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/anomalies/scan", nil, s.asUser)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/anomalies?severity=high", nil, s.asUser)
	s.Require().Equal(http.StatusOK, rec.Code)
	var listResp struct {
		Anomalies []anomaly.Record `json:"anomalies"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listResp))
	s.Require().Len(listResp.Anomalies, 1)

	s.lockPeriod(testPeriod, "locked")

	// Triage is an operator annotation, not reporting data; the lock does
	// not apply.
	rec = s.do(http.MethodPatch, "/anomalies/"+listResp.Anomalies[0].ID+"/status", map[string]string{
		"status":          "resolved",
		"resolution_note": "evidence attached offline",
	}, s.asUser)
	s.Equal(http.StatusOK, rec.Code)
}

// ============================================================================
// Cross-module flow
// ============================================================================

func (s *RouterSuite) TestSeedThenListSuppliers() {
	// The seed is admin-tier; a bearer token alone does not reach it.
	rec := s.do(http.MethodPost, "/suppliers/seed", nil, s.asUser)
	s.Require().Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/suppliers/seed", nil, s.asAdmin)
	s.Require().Equal(http.StatusOK, rec.Code)

	// The list stays on the API tier; the admin-tier seed route must not
	// shadow it.
	rec = s.do(http.MethodGet, "/suppliers", nil, s.asUser)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Suppliers []struct {
			SupplierID        string  `json:"supplier_id"`
			UpstreamImpactPct float64 `json:"upstream_impact_pct"`
		} `json:"suppliers"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Suppliers, 12)
	// Sorted by impact descending; PPG leads the seed set.
	s.Equal("ppg_001", resp.Suppliers[0].SupplierID)
}

func (s *RouterSuite) TestFragmentRoundTrip() {
	body := map[string]any{
		"fragments": []map[string]any{
			{"text": "second attempt", "extraction_request_id": "req-2", "created_at": "2026-04-02T10:00:00Z"},
			{"text": "first attempt", "extraction_request_id": "req-1", "created_at": "2026-04-01T10:00:00Z"},
		},
	}
	rec := s.do(http.MethodPost, "/documents/doc-9/pages/3/fragments", body, s.asUser)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/documents/doc-9/pages/3/fragments", nil, s.asUser)
	s.Require().Equal(http.StatusOK, rec.Code)

	var selection struct {
		SelectedRequestID string `json:"selected_request_id"`
		Fragments         []struct {
			Text string `json:"text"`
		} `json:"fragments"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &selection))
	s.Equal("req-2", selection.SelectedRequestID)
	s.Require().Len(selection.Fragments, 1)
	s.Equal("second attempt", selection.Fragments[0].Text)
}

func (s *RouterSuite) TestAuditTrailIsAdminReadable() {
	rec := s.do(http.MethodGet, "/audit", nil, s.asUser)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/audit", nil, s.asAdmin)
	s.Equal(http.StatusOK, rec.Code)
}
