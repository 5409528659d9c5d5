package integration

import (
	"context"
	"fmt"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

type staticExtractor struct {
	payloads map[string][]byte
}

// NewStaticExtractor serves extraction payloads supplied up front, keyed by
// part file name. Used when a caller already holds the worker's output.
func NewStaticExtractor(payloads map[string][]byte) Extractor {
	cp := make(map[string][]byte, len(payloads))
	for k, v := range payloads {
		cp[k] = v
	}
	return &staticExtractor{payloads: cp}
}

func (e *staticExtractor) Name() string {
	return "inline"
}

func (e *staticExtractor) Extract(ctx context.Context, part string) models.ExtractionResult {
	if ctx.Err() != nil {
		return contextFailure(ctx, part)
	}

	raw, ok := e.payloads[part]
	if !ok {
		return models.FailedExtraction(fmt.Sprintf("no extraction payload for %s", part))
	}
	return DecodeExtraction(raw)
}

func (e *staticExtractor) Ping(context.Context) error {
	return nil
}
