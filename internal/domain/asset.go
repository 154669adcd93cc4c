package domain

import "time"

// Asset is the output record owned by the asset collaborator. The job is the
// authoritative status owner; the orchestrator mirrors terminal state and the
// output URL onto the asset, never the other way around.
type Asset struct {
	ID        string
	OwnerID   string
	GroupID   string
	Prompt    string
	Status    JobStatus
	FileURL   string
	Metadata  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
