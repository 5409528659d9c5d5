package integration

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/repository"
)

// DocumentSuffix is the extension of the extraction document the CAD worker
// writes next to each part file.
const DocumentSuffix = ".json"

type documentExtractor struct {
	store  repository.JobStore
	logger zerolog.Logger
}

// NewDocumentExtractor returns an Extractor that reads pre-computed
// extraction documents ("<stem>.json" beside "<stem>.<ext>") from the store.
func NewDocumentExtractor(store repository.JobStore, logger zerolog.Logger) Extractor {
	return &documentExtractor{
		store:  store,
		logger: logger,
	}
}

func DocumentKey(part string) string {
	return strings.TrimSuffix(part, path.Ext(part)) + DocumentSuffix
}

func (e *documentExtractor) Name() string {
	return "documents"
}

func (e *documentExtractor) Extract(ctx context.Context, part string) models.ExtractionResult {
	key := DocumentKey(part)

	raw, err := e.store.Read(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return contextFailure(ctx, part)
		}
		if errors.Is(err, repository.ErrObjectNotFound) {
			return models.FailedExtraction(fmt.Sprintf("no extraction document for %s", part))
		}
		e.logger.Warn().Err(err).Str("key", key).Msg("Failed to read extraction document")
		return models.FailedExtraction(fmt.Sprintf("failed to read extraction document: %v", err))
	}

	return DecodeExtraction(raw)
}

func (e *documentExtractor) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
