package measure

import "time"

// Quality classifies how trustworthy a measured value is. Low-quality values
// are surfaced by the anomaly scan.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// IsValid checks if the quality is one of the supported enum values.
func (q Quality) IsValid() bool {
	return q == QualityHigh || q == QualityMedium || q == QualityLow
}

// MeasuredValue is one reported business figure, typically an emissions
// quantity for a supplier and scope 3 category. Values flagged
// RequiresEvidence must carry a provenance link or the scan raises an
// anomaly.
type MeasuredValue struct {
	ID               string    `json:"id"`
	SupplierID       string    `json:"supplier_id"`
	Category         string    `json:"category"`
	FieldKey         string    `json:"field_key"`
	Value            float64   `json:"value"`
	Unit             string    `json:"unit"`
	Quality          Quality   `json:"quality"`
	Period           string    `json:"period"`
	RequiresEvidence bool      `json:"requires_evidence"`
	CreatedAt        time.Time `json:"created_at"`
}

// IngestRequest is the payload for reporting a measured value. Empty Period
// means the currently open reporting period; empty Quality defaults to
// medium.
type IngestRequest struct {
	SupplierID       string  `json:"supplier_id"`
	Category         string  `json:"category"`
	FieldKey         string  `json:"field_key"`
	Value            float64 `json:"value"`
	Unit             string  `json:"unit"`
	Quality          Quality `json:"quality"`
	Period           string  `json:"period"`
	RequiresEvidence bool    `json:"requires_evidence"`
}
