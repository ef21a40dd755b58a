package engagement

import "time"

// Status tracks where a supplier engagement stands.
type Status string

const (
	StatusNotStarted      Status = "not_started"
	StatusInProgress      Status = "in_progress"
	StatusPendingResponse Status = "pending_response"
	StatusCompleted       Status = "completed"
	StatusOnHold          Status = "on_hold"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPendingResponse, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// HistoryEntry is one recorded transition of an engagement.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// Engagement is the outreach state for one supplier. A supplier with no
// stored engagement reads as not_started with empty history.
type Engagement struct {
	SupplierID     string         `json:"supplier_id"`
	Status         Status         `json:"status"`
	Notes          string         `json:"notes,omitempty"`
	NextActionDate string         `json:"next_action_date,omitempty"`
	History        []HistoryEntry `json:"history"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// UpdateRequest is the payload for updating a supplier's engagement. Period
// attributes the write for lock checks; empty means the currently open one.
type UpdateRequest struct {
	Status         Status `json:"status"`
	Notes          string `json:"notes"`
	NextActionDate string `json:"next_action_date"`
	Period         string `json:"period"`
}
