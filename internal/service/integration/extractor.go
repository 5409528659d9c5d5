package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

// Extractor obtains the measurement of one part file. It never returns an
// error: any failure, including a context deadline, is reported as a failed
// ExtractionResult so a single student can degrade without stopping the job.
type Extractor interface {
	Extract(ctx context.Context, part string) models.ExtractionResult
	Ping(ctx context.Context) error
	Name() string
}

func contextFailure(ctx context.Context, part string) models.ExtractionResult {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailedExtraction(fmt.Sprintf("extraction of %s timed out", part))
	}
	return models.FailedExtraction(fmt.Sprintf("extraction of %s cancelled: %v", part, err))
}
