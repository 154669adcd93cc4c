package domain

import "time"

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Rank maps a status onto the lifecycle ordinal: pending < processing <
// {completed, failed}. Both terminal states share the highest rank so neither
// can overwrite the other. Unknown values rank below everything.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusCompleted, JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// edge of the state machine.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	return next.Rank() > s.Rank()
}

// GenerationJob is the unit of orchestrated work: one request to produce a
// generated video through an external provider.
type GenerationJob struct {
	ID             string
	ProviderJobID  string
	AssetID        string
	Status         JobStatus
	Progress       int
	ErrorMessage   string
	Seed           int32
	RequestPayload []byte
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// JobPatch carries the fields of a forward status transition. Timestamp
// pointers are written only when the stored column is still unset.
type JobPatch struct {
	Status       JobStatus
	Progress     *int
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}
