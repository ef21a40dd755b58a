package anomaly

import (
	"fmt"
	"time"

	"carbonledger/internal/engagement"
	"carbonledger/internal/measure"
	"carbonledger/internal/provenance"
	"carbonledger/internal/recommendation"
	"carbonledger/internal/supplier"
)

// Rule ids are part of the persisted record identity. Never renumber or
// rename them; retire a rule by removing it from the catalog.
const (
	RuleMissingProvenance     = "missing_provenance"
	RuleLowDataQuality        = "low_data_quality"
	RuleInsufficientEvidence  = "insufficient_evidence_context"
	RuleStaleScan             = "stale_scan"
	RuleEngagementNotStarted  = "engagement_not_started"
	staleScanSubjectType      = "scan"
	staleScanSubjectID        = "anomaly_scan"
	measuredValueSubjectType  = "measured_value"
	recommendationSubjectType = "recommendation"
	supplierSubjectType       = "supplier"
)

// Thresholds are the tunable cutoffs the rules evaluate against.
type Thresholds struct {
	// StalenessWindow is how long the scan may be overdue before it flags
	// itself.
	StalenessWindow time.Duration
	// MinEvidenceChunks is the fewest citations a recommendation may carry.
	MinEvidenceChunks int
	// HighImpactThreshold is the upstream impact pct above which a supplier
	// must have an engagement underway.
	HighImpactThreshold float64
}

// Snapshot is the point-in-time view of business state a scan evaluates.
// Rules treat it as read-only.
type Snapshot struct {
	Measures        []measure.MeasuredValue
	Provenance      []provenance.Record
	Benchmarks      []supplier.Benchmark
	Engagements     []engagement.Engagement
	Recommendations []recommendation.Content
	LastScanAt      time.Time
	Now             time.Time
	Thresholds      Thresholds
}

// Rule pairs a stable identity and severity with a pure predicate. Evaluate
// must not perform I/O; everything it needs is in the snapshot.
type Rule struct {
	ID       string
	Severity Severity
	Evaluate func(Snapshot) []Finding
}

// Catalog returns the fixed rule set, constructed once at startup and passed
// explicitly into scans.
func Catalog() []Rule {
	return []Rule{
		{ID: RuleMissingProvenance, Severity: SeverityHigh, Evaluate: evaluateMissingProvenance},
		{ID: RuleLowDataQuality, Severity: SeverityMedium, Evaluate: evaluateLowDataQuality},
		{ID: RuleInsufficientEvidence, Severity: SeverityMedium, Evaluate: evaluateInsufficientEvidence},
		{ID: RuleStaleScan, Severity: SeverityLow, Evaluate: evaluateStaleScan},
		{ID: RuleEngagementNotStarted, Severity: SeverityLow, Evaluate: evaluateEngagementNotStarted},
	}
}

// evaluateMissingProvenance flags measured values that must be justified but
// have no provenance record for their field.
func evaluateMissingProvenance(snap Snapshot) []Finding {
	type fieldKey struct {
		entityID string
		field    string
	}
	justified := make(map[fieldKey]bool, len(snap.Provenance))
	for _, record := range snap.Provenance {
		if record.EntityType == measuredValueSubjectType {
			justified[fieldKey{entityID: record.EntityID, field: record.FieldKey}] = true
		}
	}

	var findings []Finding
	for _, mv := range snap.Measures {
		if !mv.RequiresEvidence {
			continue
		}
		if justified[fieldKey{entityID: mv.ID, field: mv.FieldKey}] {
			continue
		}
		findings = append(findings, Finding{
			SubjectType: measuredValueSubjectType,
			SubjectID:   mv.ID,
			Message:     fmt.Sprintf("value %q for supplier %s has no supporting evidence", mv.FieldKey, mv.SupplierID),
			FixHint:     "link at least one evidence fragment to this field via the provenance API",
			Details:     measureDeepLink(snap, mv),
		})
	}
	return findings
}

// evaluateLowDataQuality flags measured values whose quality classification
// is below the acceptable floor.
func evaluateLowDataQuality(snap Snapshot) []Finding {
	var findings []Finding
	for _, mv := range snap.Measures {
		if mv.Quality != measure.QualityLow {
			continue
		}
		findings = append(findings, Finding{
			SubjectType: measuredValueSubjectType,
			SubjectID:   mv.ID,
			Message:     fmt.Sprintf("value %q for supplier %s is classified low quality", mv.FieldKey, mv.SupplierID),
			FixHint:     "replace the estimate with primary data or a higher-quality source",
			Details:     measureDeepLink(snap, mv),
		})
	}
	return findings
}

// evaluateInsufficientEvidence flags recommendation narratives citing fewer
// evidence chunks than the configured minimum.
func evaluateInsufficientEvidence(snap Snapshot) []Finding {
	var findings []Finding
	for _, content := range snap.Recommendations {
		if len(content.SourceCitations) >= snap.Thresholds.MinEvidenceChunks {
			continue
		}
		findings = append(findings, Finding{
			SubjectType: recommendationSubjectType,
			SubjectID:   content.BenchmarkID,
			Message: fmt.Sprintf("recommendation for benchmark %s cites %d evidence chunks, minimum is %d",
				content.BenchmarkID, len(content.SourceCitations), snap.Thresholds.MinEvidenceChunks),
			FixHint: "regenerate the narrative with additional source citations",
		})
	}
	return findings
}

// evaluateStaleScan flags the scan process itself when the previous run is
// older than the staleness window or never happened.
func evaluateStaleScan(snap Snapshot) []Finding {
	overdue := snap.LastScanAt.IsZero() || snap.Now.Sub(snap.LastScanAt) > snap.Thresholds.StalenessWindow
	if !overdue {
		return nil
	}

	message := "anomaly scan has never completed"
	if !snap.LastScanAt.IsZero() {
		message = fmt.Sprintf("last anomaly scan completed %s ago, window is %s",
			snap.Now.Sub(snap.LastScanAt).Round(time.Minute), snap.Thresholds.StalenessWindow)
	}
	return []Finding{{
		SubjectType: staleScanSubjectType,
		SubjectID:   staleScanSubjectID,
		Message:     message,
		FixHint:     "check the scan scheduler and trigger a manual scan",
	}}
}

// evaluateEngagementNotStarted flags high-impact suppliers with no
// engagement underway.
func evaluateEngagementNotStarted(snap Snapshot) []Finding {
	started := make(map[string]bool, len(snap.Engagements))
	for _, eng := range snap.Engagements {
		if eng.Status != engagement.StatusNotStarted {
			started[eng.SupplierID] = true
		}
	}

	var findings []Finding
	for _, b := range snap.Benchmarks {
		if !b.IsHighImpact(snap.Thresholds.HighImpactThreshold) || started[b.SupplierID] {
			continue
		}
		findings = append(findings, Finding{
			SubjectType: supplierSubjectType,
			SubjectID:   b.SupplierID,
			Message: fmt.Sprintf("%s drives %.2f%% of upstream emissions but engagement has not started",
				b.SupplierName, b.UpstreamImpactPct),
			FixHint: "open an engagement with this supplier from the benchmark view",
		})
	}
	return findings
}

// measureDeepLink carries enough of the measured value for a consumer to
// navigate back to the exact evidence-entry point. When the field already has
// a provenance record, its snapshotted label/value/unit win over the live
// measure so the deep-link lands on what the operator actually justified.
func measureDeepLink(snap Snapshot, mv measure.MeasuredValue) map[string]string {
	details := map[string]string{
		"entity_type": measuredValueSubjectType,
		"entity_id":   mv.ID,
		"field_key":   mv.FieldKey,
		"field_label": mv.Category,
		"value":       fmt.Sprintf("%g", mv.Value),
		"unit":        mv.Unit,
	}
	if record := currentProvenance(snap, mv); record != nil {
		if record.FieldLabel != "" {
			details["field_label"] = record.FieldLabel
		}
		if record.Value != "" {
			details["value"] = record.Value
		}
		if record.Unit != "" {
			details["unit"] = record.Unit
		}
	}
	return details
}

// currentProvenance returns the newest provenance record justifying the
// measured value's field, created_at descending with id as the tie-break.
func currentProvenance(snap Snapshot, mv measure.MeasuredValue) *provenance.Record {
	var current *provenance.Record
	for i := range snap.Provenance {
		record := &snap.Provenance[i]
		if record.EntityType != measuredValueSubjectType || record.EntityID != mv.ID || record.FieldKey != mv.FieldKey {
			continue
		}
		if current == nil ||
			record.CreatedAt.After(current.CreatedAt) ||
			(record.CreatedAt.Equal(current.CreatedAt) && record.ID < current.ID) {
			current = record
		}
	}
	return current
}
