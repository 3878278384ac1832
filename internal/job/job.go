// Package job owns the registry of in-flight and completed download jobs:
// progress tracking, the status state machine, cancellation, fallback
// substitution and TTL eviction.
package job

import "time"

// Status is the job state machine. Transitions only move along
// pending → downloading → {completed, completed_fallback, error};
// terminal states do not transition further.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFallback    Status = "completed_fallback"
	StatusError       Status = "error"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFallback || s == StatusError
}

// Snapshot is a consistent read of one job's observable state.
type Snapshot struct {
	ID       string
	VideoID  string
	FormatID string
	Progress float64
	Status   Status
	Error    string
}

// Event is emitted when a job reaches a terminal state.
type Event struct {
	JobID      string
	VideoID    string
	FormatID   string
	Status     Status
	Error      string
	FinishedAt time.Time
}
