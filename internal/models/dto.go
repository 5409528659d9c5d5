package models

import (
	"encoding/json"
	"time"
)

// Data Transfer Objects

// GradingJobRequest asks for a job over part files in the job store.
// When Submissions is empty they are discovered under Prefix.
type GradingJobRequest struct {
	JobID       string   `json:"job_id,omitempty"`
	Master      string   `json:"master"`
	Prefix      string   `json:"prefix,omitempty"`
	Submissions []string `json:"submissions,omitempty"`
}

// EvaluateRequest runs the engine over extraction payloads supplied inline,
// in the same JSON shape the CAD worker emits.
type EvaluateRequest struct {
	JobID    string       `json:"job_id,omitempty"`
	Master   InlinePart   `json:"master"`
	Students []InlinePart `json:"students"`
}

type InlinePart struct {
	FileName string          `json:"file_name"`
	Payload  json.RawMessage `json:"payload"`
}

type HealthCheckResponse struct {
	Status        string    `json:"status"`
	Extraction    string    `json:"extraction"`
	Storage       string    `json:"storage"`
	MaxWorkers    int       `json:"max_workers"`
	JobsCompleted int64     `json:"jobs_completed"`
	JobsFailed    int64     `json:"jobs_failed"`
	Uptime        string    `json:"uptime"`
	Timestamp     time.Time `json:"timestamp"`
}

type GradeBandView struct {
	Threshold float64 `json:"threshold"`
	Grade     string  `json:"grade"`
}

type GradingPolicyView struct {
	ComplexityThreshold int             `json:"complexity_threshold"`
	VolumeTolerance     float64         `json:"volume_tolerance_mm3"`
	HashAlgorithm       string          `json:"hash_algorithm"`
	AccuracyGrades      []GradeBandView `json:"accuracy_grades"`
	GDTGrades           []GradeBandView `json:"gdt_grades"`
	OverallGrades       []GradeBandView `json:"overall_grades"`
	AccuracyWeight      float64         `json:"accuracy_weight"`
	GDTWeight           float64         `json:"gdt_weight"`
}
