package models

import "time"

// Refresh job statuses. The job walks idle -> fetching -> processing and ends
// in completed or failed; reset returns a finished job to idle.
const (
	JobStatusIdle       = "idle"
	JobStatusFetching   = "fetching"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobProgress is the human-readable progress portion of the job state.
type JobProgress struct {
	CurrentPhase string `json:"current_phase"`
	Message      string `json:"message"`
}

// JobState is the persisted, process-wide refresh job record. It is the sole
// source of truth for whether a refresh is running and must survive restarts.
type JobState struct {
	Status                string      `json:"status"`
	Phase                 string      `json:"phase"`
	StartedAt             *time.Time  `json:"started_at"`
	CompletedAt           *time.Time  `json:"completed_at"`
	LastSuccessfulRefresh *time.Time  `json:"last_successful_refresh"`
	Error                 string      `json:"error"`
	Progress              JobProgress `json:"progress"`
}

// Running reports whether the state describes an active refresh.
func (s JobState) Running() bool {
	return s.Status == JobStatusFetching || s.Status == JobStatusProcessing
}

// IdleJobState returns a fresh idle state, optionally carrying over the last
// successful refresh time.
func IdleJobState(lastRefresh *time.Time) JobState {
	return JobState{
		Status:                JobStatusIdle,
		LastSuccessfulRefresh: lastRefresh,
		Progress: JobProgress{
			Message: "No refresh in progress",
		},
	}
}
