package models

import (
	"time"
)

type GradingRequestedEvent struct {
	JobID       string   `json:"job_id"`
	Master      string   `json:"master"`
	Prefix      string   `json:"prefix,omitempty"`
	Submissions []string `json:"submissions,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}

type GradingCompletedEvent struct {
	JobID       string       `json:"job_id"`
	Master      string       `json:"master"`
	Summary     ClassSummary `json:"summary"`
	ProcessedMs int          `json:"processing_time_ms"`
	CompletedAt time.Time    `json:"completed_at"`
}

type GradingFailedEvent struct {
	JobID    string    `json:"job_id"`
	Reason   string    `json:"reason"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
