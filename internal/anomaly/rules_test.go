package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carbonledger/internal/engagement"
	"carbonledger/internal/measure"
	"carbonledger/internal/provenance"
	"carbonledger/internal/recommendation"
	"carbonledger/internal/supplier"
)

type RulesSuite struct {
	suite.Suite
	now time.Time
}

func (s *RulesSuite) SetupSuite() {
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestRulesSuite(t *testing.T) {
	suite.Run(t, new(RulesSuite))
}

func (s *RulesSuite) baseSnapshot() Snapshot {
	return Snapshot{
		Now: s.now,
		Thresholds: Thresholds{
			StalenessWindow:     24 * time.Hour,
			MinEvidenceChunks:   2,
			HighImpactThreshold: 2.0,
		},
		LastScanAt: s.now.Add(-time.Hour),
	}
}

func (s *RulesSuite) TestMissingProvenance() {
	snap := s.baseSnapshot()
	snap.Measures = []measure.MeasuredValue{
		{ID: "mv-1", SupplierID: "ppg_001", FieldKey: "emissions_tco2e", Value: 100, Unit: "tCO2e", RequiresEvidence: true},
		{ID: "mv-2", SupplierID: "dow_001", FieldKey: "emissions_tco2e", RequiresEvidence: true},
		{ID: "mv-3", SupplierID: "cat_001", FieldKey: "emissions_tco2e", RequiresEvidence: false},
	}
	snap.Provenance = []provenance.Record{
		{EntityType: "measured_value", EntityID: "mv-1", FieldKey: "emissions_tco2e"},
	}

	findings := evaluateMissingProvenance(snap)
	s.Require().Len(findings, 1)
	s.Equal("mv-2", findings[0].SubjectID)
	s.Equal("measured_value", findings[0].SubjectType)

	// Deep-link details are guaranteed for provenance-related findings.
	s.Equal("mv-2", findings[0].Details["entity_id"])
	s.Equal("emissions_tco2e", findings[0].Details["field_key"])
}

func (s *RulesSuite) TestMissingProvenanceMatchesFieldKey() {
	snap := s.baseSnapshot()
	snap.Measures = []measure.MeasuredValue{
		{ID: "mv-1", SupplierID: "ppg_001", FieldKey: "emissions_tco2e", RequiresEvidence: true},
	}
	// Evidence for a different field does not justify this one.
	snap.Provenance = []provenance.Record{
		{EntityType: "measured_value", EntityID: "mv-1", FieldKey: "spend_usd"},
	}

	findings := evaluateMissingProvenance(snap)
	s.Len(findings, 1)
}

func (s *RulesSuite) TestLowDataQuality() {
	snap := s.baseSnapshot()
	snap.Measures = []measure.MeasuredValue{
		{ID: "mv-1", Quality: measure.QualityLow, FieldKey: "emissions_tco2e", SupplierID: "ppg_001"},
		{ID: "mv-2", Quality: measure.QualityMedium},
		{ID: "mv-3", Quality: measure.QualityHigh},
	}

	findings := evaluateLowDataQuality(snap)
	s.Require().Len(findings, 1)
	s.Equal("mv-1", findings[0].SubjectID)
}

func (s *RulesSuite) TestLowDataQualityDeepLinksJustifiedValue() {
	snap := s.baseSnapshot()
	snap.Measures = []measure.MeasuredValue{
		{ID: "mv-1", Quality: measure.QualityLow, FieldKey: "emissions_tco2e", SupplierID: "ppg_001", Category: "Emissions", Value: 1300, Unit: "tCO2e"},
	}
	snap.Provenance = []provenance.Record{
		{
			ID: "prov_0", EntityType: "measured_value", EntityID: "mv-1", FieldKey: "emissions_tco2e",
			FieldLabel: "Scope 3 (superseded)", Value: "1200", Unit: "tCO2e",
			CreatedAt: s.now.Add(-2 * time.Hour),
		},
		{
			ID: "prov_1", EntityType: "measured_value", EntityID: "mv-1", FieldKey: "emissions_tco2e",
			FieldLabel: "Scope 3 emissions", Value: "1250.5", Unit: "tCO2e",
			CreatedAt: s.now.Add(-time.Hour),
		},
	}

	findings := evaluateLowDataQuality(snap)
	s.Require().Len(findings, 1)
	// The newest record's snapshot wins over the live measure value.
	s.Equal("Scope 3 emissions", findings[0].Details["field_label"])
	s.Equal("1250.5", findings[0].Details["value"])
	s.Equal("tCO2e", findings[0].Details["unit"])
	s.Equal("mv-1", findings[0].Details["entity_id"])
}

func (s *RulesSuite) TestInsufficientEvidence() {
	snap := s.baseSnapshot()
	snap.Recommendations = []recommendation.Content{
		{BenchmarkID: "bm_1", SourceCitations: []recommendation.Citation{{Title: "one"}}},
		{BenchmarkID: "bm_2", SourceCitations: []recommendation.Citation{{Title: "one"}, {Title: "two"}}},
		{BenchmarkID: "bm_3"},
	}

	findings := evaluateInsufficientEvidence(snap)
	s.Require().Len(findings, 2)
	s.Equal("bm_1", findings[0].SubjectID)
	s.Equal("bm_3", findings[1].SubjectID)
}

func (s *RulesSuite) TestStaleScan() {
	snap := s.baseSnapshot()
	s.Empty(evaluateStaleScan(snap), "recent scan is not stale")

	snap.LastScanAt = s.now.Add(-25 * time.Hour)
	s.Len(evaluateStaleScan(snap), 1, "overdue scan fires")

	snap.LastScanAt = time.Time{}
	findings := evaluateStaleScan(snap)
	s.Require().Len(findings, 1, "never-ran fires")
	s.Equal("anomaly_scan", findings[0].SubjectID)
}

func (s *RulesSuite) TestEngagementNotStarted() {
	snap := s.baseSnapshot()
	snap.Benchmarks = []supplier.Benchmark{
		{ID: "bm_ppg", SupplierID: "ppg_001", SupplierName: "PPG Industries", UpstreamImpactPct: 8.78},
		{ID: "bm_dow", SupplierID: "dow_001", SupplierName: "Dow Chemical", UpstreamImpactPct: 3.05},
		{ID: "bm_nucor", SupplierID: "nucor_001", SupplierName: "Nucor Steel", UpstreamImpactPct: 1.76},
	}
	snap.Engagements = []engagement.Engagement{
		{SupplierID: "dow_001", Status: engagement.StatusInProgress},
		{SupplierID: "ppg_001", Status: engagement.StatusNotStarted},
	}

	findings := evaluateEngagementNotStarted(snap)
	s.Require().Len(findings, 1)
	// ppg is high impact with an explicitly not-started engagement; dow is
	// engaged; nucor is below the threshold.
	s.Equal("ppg_001", findings[0].SubjectID)
}

func (s *RulesSuite) TestDeterministicID() {
	id := DeterministicID("missing_provenance", "measured_value", "mv-1")
	s.Equal(id, DeterministicID("missing_provenance", "measured_value", "mv-1"))
	s.NotEqual(id, DeterministicID("missing_provenance", "measured_value", "mv-2"))
	s.NotEqual(id, DeterministicID("low_data_quality", "measured_value", "mv-1"))
	s.Regexp(`^anm_[0-9a-f]{64}$`, id)
}

func (s *RulesSuite) TestCatalogIsStable() {
	catalog := Catalog()
	s.Require().Len(catalog, 5)

	severities := map[string]Severity{}
	for _, rule := range catalog {
		severities[rule.ID] = rule.Severity
		s.NotNil(rule.Evaluate)
	}
	s.Equal(SeverityHigh, severities[RuleMissingProvenance])
	s.Equal(SeverityMedium, severities[RuleLowDataQuality])
	s.Equal(SeverityMedium, severities[RuleInsufficientEvidence])
	s.Equal(SeverityLow, severities[RuleStaleScan])
	s.Equal(SeverityLow, severities[RuleEngagementNotStarted])
}
