package models

import (
	"errors"
	"fmt"
)

// Job-level fatal conditions. They abort a job before any per-student work
// starts and are reported separately from per-student faults.
var (
	ErrInvalidJob       = errors.New("invalid grading job")
	ErrMasterNotFound   = errors.New("master file not found")
	ErrMasterExtraction = errors.New("master extraction failed")
	ErrNoSubmissions    = errors.New("no student submissions found")
	ErrJobTimeout       = errors.New("grading job timed out")
)

type JobError struct {
	JobID  string
	Reason error
	Detail string
}

func NewJobError(jobID string, reason error, detail string) *JobError {
	return &JobError{JobID: jobID, Reason: reason, Detail: detail}
}

func (e *JobError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("job %s: %v", e.JobID, e.Reason)
	}
	return fmt.Sprintf("job %s: %v: %s", e.JobID, e.Reason, e.Detail)
}

func (e *JobError) Unwrap() error {
	return e.Reason
}

func IsJobError(err error) bool {
	var je *JobError
	return errors.As(err, &je)
}
