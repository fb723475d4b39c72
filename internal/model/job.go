package model

import "time"

// JobStatus is the lifecycle state of a scrape job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// Job is the persisted record for one scrape run. The orchestrator's
// caller updates it as milestones occur; the serve API reads it.
type Job struct {
	ID           string    `json:"id"`
	Keyword      string    `json:"keyword"`
	Locations    []string  `json:"locations"`
	Target       int       `json:"target"`
	Status       JobStatus `json:"status"`
	DownloadLink string    `json:"downloadable_link,omitempty"`
	CompletedInS float64   `json:"completed_in_s,omitempty"`
	LeadsCount   int       `json:"leads_count"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
