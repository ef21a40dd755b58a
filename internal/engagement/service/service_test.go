package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"carbonledger/internal/engagement"
	"carbonledger/internal/engagement/store"
	"carbonledger/internal/periodlock"
	plService "carbonledger/internal/periodlock/service"
	plStore "carbonledger/internal/periodlock/store"
	dErrors "carbonledger/pkg/domain-errors"
)

type EngagementServiceSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *EngagementServiceSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestEngagementServiceSuite(t *testing.T) {
	suite.Run(t, new(EngagementServiceSuite))
}

func (s *EngagementServiceSuite) newService() (*Service, *plService.Service) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := plService.New(plStore.NewMemory(), logger, nil)
	return New(store.NewMemory(), gate, logger, nil, "2026-Q1"), gate
}

func (s *EngagementServiceSuite) TestGetDefaultsToNotStarted() {
	svc, _ := s.newService()

	eng, err := svc.Get(s.ctx, "ppg_001")
	s.Require().NoError(err)
	s.Equal(engagement.StatusNotStarted, eng.Status)
	s.Empty(eng.History)
}

func (s *EngagementServiceSuite) TestUpdateAppendsHistory() {
	svc, _ := s.newService()

	_, err := svc.Update(s.ctx, "ppg_001", engagement.UpdateRequest{
		Status: engagement.StatusInProgress,
		Notes:  "kickoff call booked",
	})
	s.Require().NoError(err)

	eng, err := svc.Update(s.ctx, "ppg_001", engagement.UpdateRequest{
		Status:         engagement.StatusPendingResponse,
		Notes:          "awaiting data request",
		NextActionDate: "2026-04-15",
	})
	s.Require().NoError(err)

	s.Equal(engagement.StatusPendingResponse, eng.Status)
	s.Require().Len(eng.History, 2)
	s.Equal(engagement.StatusInProgress, eng.History[0].Status)
	s.Equal(engagement.StatusPendingResponse, eng.History[1].Status)
}

func (s *EngagementServiceSuite) TestUpdateValidation() {
	svc, _ := s.newService()

	_, err := svc.Update(s.ctx, "", engagement.UpdateRequest{Status: engagement.StatusInProgress})
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))

	_, err = svc.Update(s.ctx, "ppg_001", engagement.UpdateRequest{Status: "paused"})
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func (s *EngagementServiceSuite) TestUpdateDeniedWhenPeriodLocked() {
	svc, gate := s.newService()
	_, err := gate.SetStatus(s.ctx, "2026-Q1", periodlock.StatusLocked)
	s.Require().NoError(err)

	_, err = svc.Update(s.ctx, "ppg_001", engagement.UpdateRequest{Status: engagement.StatusInProgress})
	s.True(dErrors.Is(err, dErrors.CodeLocked))

	// Reads stay available while the period is locked.
	eng, err := svc.Get(s.ctx, "ppg_001")
	s.Require().NoError(err)
	s.Equal(engagement.StatusNotStarted, eng.Status)
}

func (s *EngagementServiceSuite) TestListReturnsRecordedOnly() {
	svc, _ := s.newService()

	_, err := svc.Update(s.ctx, "dow_001", engagement.UpdateRequest{Status: engagement.StatusCompleted})
	s.Require().NoError(err)

	engagements, err := svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(engagements, 1)
	s.Equal("dow_001", engagements[0].SupplierID)
}
