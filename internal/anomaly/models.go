package anomaly

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Severity ranks how urgently a finding needs operator attention.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Status is the operator-controlled lifecycle state of an anomaly record.
// Records never leave the store; resolved and ignored records persist for
// auditability and the scan never rewrites status.
type Status string

const (
	StatusOpen     Status = "open"
	StatusIgnored  Status = "ignored"
	StatusResolved Status = "resolved"
)

// IsValidTarget reports whether an operator may move a record into this
// status. Open is creation-only; operators move records between ignored and
// resolved but never back to open.
func (s Status) IsValidTarget() bool {
	return s == StatusIgnored || s == StatusResolved
}

// Record is one firing of a rule against a subject. The id derives from
// (rule, subject) so repeated scans converge on the same record.
type Record struct {
	ID             string            `json:"id"`
	RuleID         string            `json:"rule_id"`
	Severity       Severity          `json:"severity"`
	SubjectType    string            `json:"subject_type"`
	SubjectID      string            `json:"subject_id"`
	Message        string            `json:"message"`
	FixHint        string            `json:"fix_hint"`
	Details        map[string]string `json:"details,omitempty"`
	Status         Status            `json:"status"`
	ResolutionNote string            `json:"resolution_note,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// DeterministicID derives the stable record id for a (rule, subject) triple.
// The pipe separator keeps distinct triples from colliding on concatenation.
func DeterministicID(ruleID, subjectType, subjectID string) string {
	sum := sha256.Sum256([]byte(ruleID + "|" + subjectType + "|" + subjectID))
	return "anm_" + hex.EncodeToString(sum[:])
}

// Finding is one firing produced by a rule evaluation, before it is keyed
// and upserted.
type Finding struct {
	SubjectType string
	SubjectID   string
	Message     string
	FixHint     string
	Details     map[string]string
}

// ScanReport summarizes one scan run.
type ScanReport struct {
	Upserted       int      `json:"upserted"`
	RulesSucceeded int      `json:"rules_succeeded"`
	RulesFailed    int      `json:"rules_failed"`
	FailedRules    []string `json:"failed_rules,omitempty"`
}

// ScanRun is one completed scan, recorded for staleness tracking.
type ScanRun struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Upserted    int       `json:"upserted"`
	RulesFailed int       `json:"rules_failed"`
}

// ListFilter narrows anomaly listings. Empty values mean no filtering.
type ListFilter struct {
	Status   Status
	Severity Severity
}
