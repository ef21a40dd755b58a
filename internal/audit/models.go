package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Subject   string            `json:"subject"`
	Period    string            `json:"period,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Actions recorded across the service. Reads are not audited.
const (
	ActionProvenanceCreated   = "provenance.created"
	ActionProvenanceDeleted   = "provenance.deleted"
	ActionFragmentsIngested   = "fragments.ingested"
	ActionPeriodLockChanged   = "period_lock.changed"
	ActionAnomalyStatusSet    = "anomaly.status_set"
	ActionBenchmarksSeeded    = "benchmarks.seeded"
	ActionMeasureRecorded     = "measure.recorded"
	ActionEngagementUpdated   = "engagement.updated"
	ActionRecommendationSaved = "recommendation.saved"
)
