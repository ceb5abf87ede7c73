package model

import "time"

// JobStatus represents the state of one in-flight analysis attempt.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job tracks one domain's analysis attempt while it is scheduled.
// Progress is only meaningful while Status is running; terminal states freeze
// it at 100 (completed) or at the last observed value (failed).
type Job struct {
	ID          string     `json:"id"`
	Domain      string     `json:"domain"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"current_step,omitempty"`
	Error       string     `json:"error,omitempty"`
	Result      *RawResult `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
