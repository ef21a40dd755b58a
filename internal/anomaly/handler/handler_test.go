package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"carbonledger/internal/anomaly"
	engagementStore "carbonledger/internal/engagement/store"
	"carbonledger/internal/measure"
	measureStore "carbonledger/internal/measure/store"
	"carbonledger/internal/platform/middleware"
	provenanceStore "carbonledger/internal/provenance/store"
	recommendationStore "carbonledger/internal/recommendation/store"
	supplierStore "carbonledger/internal/supplier/store"
	"carbonledger/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router   http.Handler
	measures *measureStore.InMemoryStore
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.measures = measureStore.NewMemory()

	svc := anomaly.NewService(
		anomaly.NewMemoryStore(),
		anomaly.Catalog(),
		anomaly.Thresholds{StalenessWindow: 24 * time.Hour, MinEvidenceChunks: 2, HighImpactThreshold: 2.0},
		anomaly.Sources{
			Measures:        s.measures,
			Provenance:      provenanceStore.NewMemory(),
			Benchmarks:      supplierStore.NewMemory(),
			Engagements:     engagementStore.NewMemory(),
			Recommendations: recommendationStore.NewMemory(),
		},
		logger, nil, nil,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) seedMeasure() measure.MeasuredValue {
	mv := measure.MeasuredValue{
		ID:               "mv-1",
		SupplierID:       "ppg_001",
		FieldKey:         "emissions_tco2e",
		Unit:             "tCO2e",
		Quality:          measure.QualityHigh,
		RequiresEvidence: true,
		CreatedAt:        time.Now().UTC(),
	}
	s.Require().NoError(s.measures.Create(s.T().Context(), mv))
	return mv
}

func (s *HandlerSuite) TestScanThenList() {
	s.seedMeasure()

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/anomalies/scan", nil))
	s.Require().Equal(http.StatusOK, rr.Code)

	report := testutil.DecodeResponse[anomaly.ScanReport](s.T(), rr)
	s.Positive(report.Upserted)
	s.Equal(5, report.RulesSucceeded)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/anomalies?severity=high", nil))
	s.Require().Equal(http.StatusOK, rr.Code)

	resp := testutil.DecodeResponse[struct {
		Anomalies []anomaly.Record `json:"anomalies"`
	}](s.T(), rr)
	s.Require().Len(resp.Anomalies, 1)
	s.Equal("missing_provenance", resp.Anomalies[0].RuleID)
}

func (s *HandlerSuite) TestListRejectsUnknownFilter() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/anomalies?status=wat", nil))
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal("invalid_input", testutil.ErrorCode(s.T(), rr))
}

func (s *HandlerSuite) TestSetStatus() {
	mv := s.seedMeasure()
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/anomalies/scan", nil))
	s.Require().Equal(http.StatusOK, rr.Code)

	id := anomaly.DeterministicID("missing_provenance", "measured_value", mv.ID)
	req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/anomalies/"+id+"/status", map[string]string{
		"status":          "ignored",
		"resolution_note": "tracked in next quarter",
	})
	rr = testutil.DoRequest(s.router, testutil.WithUserID(req, "auditor@example.com"))
	s.Require().Equal(http.StatusOK, rr.Code)

	record := testutil.DecodeResponse[anomaly.Record](s.T(), rr)
	s.Equal(anomaly.StatusIgnored, record.Status)
	s.Equal("tracked in next quarter", record.ResolutionNote)
}

func (s *HandlerSuite) TestSetStatusUnknownID() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/anomalies/anm_missing/status", map[string]string{
		"status": "resolved",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal("not_found", testutil.ErrorCode(s.T(), rr))
}

func (s *HandlerSuite) TestSetStatusMalformedBody() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/anomalies/anm_x/status", nil)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}
