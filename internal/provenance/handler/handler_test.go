package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"carbonledger/internal/provenance"
	"carbonledger/internal/provenance/handler/mocks"
	dErrors "carbonledger/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/provenance-mocks.go -package=mocks Service
type ProvenanceHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ProvenanceHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestProvenanceHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProvenanceHandlerSuite))
}

func (s *ProvenanceHandlerSuite) newRouter() (http.Handler, *mocks.MockService) {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func (s *ProvenanceHandlerSuite) TestCreate() {
	r, mockService := s.newRouter()
	createdAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	req := provenance.CreateRequest{
		EntityType:  "measured_value",
		EntityID:    "mv-1",
		FieldKey:    "emissions_tco2e",
		DocumentID:  "doc-1",
		PageNumber:  3,
		FragmentIDs: []string{"frg_a", "frg_b"},
	}
	mockService.EXPECT().Create(gomock.Any(), req).Return(provenance.Record{
		ID:          "prov_abc",
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		FieldKey:    req.FieldKey,
		DocumentID:  req.DocumentID,
		PageNumber:  req.PageNumber,
		FragmentIDs: req.FragmentIDs,
		Period:      "2026-Q1",
		CreatedAt:   createdAt,
	}, nil)

	body, err := json.Marshal(req)
	s.Require().NoError(err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/provenance", bytes.NewReader(body)))
	s.Require().Equal(http.StatusCreated, w.Code)

	var record provenance.Record
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &record))
	s.Equal("prov_abc", record.ID)
	s.Equal("2026-Q1", record.Period)
}

func (s *ProvenanceHandlerSuite) TestCreateInvalidBody() {
	r, _ := s.newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/provenance", bytes.NewReader([]byte("{broken"))))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ProvenanceHandlerSuite) TestCreateLockedPeriod() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(provenance.Record{}, dErrors.New(dErrors.CodeLocked, "reporting period is locked").WithField("period", "2026-Q1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/provenance", bytes.NewReader([]byte(`{}`))))
	s.Require().Equal(http.StatusLocked, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("period_locked", resp.Error)
}

func (s *ProvenanceHandlerSuite) TestList() {
	r, mockService := s.newRouter()
	mockService.EXPECT().List(gomock.Any(), "measured_value", "mv-1").
		Return([]provenance.Record{{ID: "prov_1"}, {ID: "prov_2"}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provenance?entity_type=measured_value&entity_id=mv-1", nil))
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Records []provenance.Record `json:"records"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Records, 2)
}

func (s *ProvenanceHandlerSuite) TestListMissingEntityFilter() {
	r, mockService := s.newRouter()
	mockService.EXPECT().List(gomock.Any(), "", "").
		Return(nil, dErrors.New(dErrors.CodeInvalidInput, "entity type is required").WithField("field", "entity_type"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provenance", nil))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ProvenanceHandlerSuite) TestDelete() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Delete(gomock.Any(), "prov_1").Return(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/provenance/prov_1", nil))
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *ProvenanceHandlerSuite) TestDeleteLockedPeriod() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Delete(gomock.Any(), "prov_1").
		Return(dErrors.New(dErrors.CodeLocked, "reporting period is locked").WithField("period", "2026-Q1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/provenance/prov_1", nil))
	s.Equal(http.StatusLocked, w.Code)
}
