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

	"carbonledger/internal/fragment"
	"carbonledger/internal/fragment/service"
	"carbonledger/internal/fragment/store"
	"carbonledger/internal/periodlock"
	plService "carbonledger/internal/periodlock/service"
	plStore "carbonledger/internal/periodlock/store"
)

type FragmentHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *FragmentHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestFragmentHandlerSuite(t *testing.T) {
	suite.Run(t, new(FragmentHandlerSuite))
}

func (s *FragmentHandlerSuite) newRouter() (http.Handler, *plService.Service) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := plService.New(plStore.NewMemory(), logger, nil)
	svc := service.New(store.NewMemory(), gate, logger, nil, nil)
	h := New(svc, logger, "2026-Q1")

	r := chi.NewRouter()
	h.Register(r)
	return r, gate
}

func (s *FragmentHandlerSuite) postBatch(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *FragmentHandlerSuite) TestIngestThenPageView() {
	r, _ := s.newRouter()
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	w := s.postBatch(r, "/documents/doc-1/pages/1/fragments", map[string]any{
		"fragments": []map[string]any{
			{"text": "total", "bounding_box": []float64{10, 10, 20, 20}, "extraction_request_id": "r1", "created_at": t1},
			{"text": "header", "bounding_box": []float64{5, 9, 20, 20}, "extraction_request_id": "r1", "created_at": t1},
		},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var created struct {
		Ingested int `json:"ingested"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.Equal(2, created.Ingested)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1/pages/1/fragments", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	var sel fragment.Selection
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &sel))
	s.Equal("r1", sel.RequestID)
	s.Require().Len(sel.Fragments, 2)
	s.Equal("header", sel.Fragments[0].Text)
	s.Equal("total", sel.Fragments[1].Text)
}

func (s *FragmentHandlerSuite) TestIngestLockedPeriodReturns423() {
	r, gate := s.newRouter()
	_, err := gate.SetStatus(s.ctx, "2026-Q1", periodlock.StatusLocked)
	s.Require().NoError(err)

	// No explicit period in the body: the default period applies and it is
	// locked.
	w := s.postBatch(r, "/documents/doc-1/pages/1/fragments", map[string]any{
		"fragments": []map[string]any{{"text": "x"}},
	})
	s.Require().Equal(http.StatusLocked, w.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("period_locked", resp.Error)
	s.Equal("2026-Q1", resp.Fields["period"])
}

func (s *FragmentHandlerSuite) TestIngestExplicitPeriodOverridesDefault() {
	r, gate := s.newRouter()
	_, err := gate.SetStatus(s.ctx, "2026-Q1", periodlock.StatusLocked)
	s.Require().NoError(err)

	w := s.postBatch(r, "/documents/doc-1/pages/1/fragments", map[string]any{
		"period":    "2026-Q2",
		"fragments": []map[string]any{{"text": "x"}},
	})
	s.Equal(http.StatusCreated, w.Code)
}

func (s *FragmentHandlerSuite) TestIngestRejectsMalformedPage() {
	r, _ := s.newRouter()
	w := s.postBatch(r, "/documents/doc-1/pages/one/fragments", map[string]any{
		"fragments": []map[string]any{{"text": "x"}},
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *FragmentHandlerSuite) TestIngestRejectsInvalidBody() {
	r, _ := s.newRouter()
	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/pages/1/fragments", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *FragmentHandlerSuite) TestMalformedBoundingBoxToleratedOnIngest() {
	r, _ := s.newRouter()
	w := s.postBatch(r, "/documents/doc-1/pages/1/fragments", map[string]any{
		"fragments": []map[string]any{
			{"text": "boxless", "bounding_box": []float64{1, 2, 3}, "extraction_request_id": "r1", "created_at": time.Now().UTC()},
			{"text": "boxed", "bounding_box": []float64{1, 2, 3, 4}, "extraction_request_id": "r1", "created_at": time.Now().UTC()},
		},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1/pages/1/fragments", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var sel fragment.Selection
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &sel))
	s.Require().Len(sel.Fragments, 2)
	// Boxed sorts first; the three-element box decodes as absent.
	s.Equal("boxed", sel.Fragments[0].Text)
	s.Equal("boxless", sel.Fragments[1].Text)
	s.Nil(sel.Fragments[1].Box.Box)
}
