package periodlock

import "time"

// Status is the lock state of a reporting period.
type Status string

const (
	StatusOpen   Status = "open"
	StatusLocked Status = "locked"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusLocked
}

// Lock is the authoritative lock state for one reporting period. There is at
// most one per period value; writes are last-write-wins overwrites (a
// versioned lock with optimistic concurrency is deliberately out of scope).
type Lock struct {
	Period    string    `json:"period"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// IsLocked reports whether writes attributed to this period must be denied.
func (l Lock) IsLocked() bool {
	return l.Status == StatusLocked
}
