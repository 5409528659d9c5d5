package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

type workerClient struct {
	baseURL    string
	timeout    time.Duration
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

type extractRequest struct {
	Part string `json:"part"`
}

// NewWorkerClient returns an Extractor backed by the CAD automation worker's
// HTTP API.
func NewWorkerClient(baseURL string, timeout time.Duration, retryCount int, retryDelay time.Duration, logger zerolog.Logger) Extractor {
	return &workerClient{
		baseURL:    baseURL,
		timeout:    timeout,
		retryCount: retryCount,
		retryDelay: retryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *workerClient) Name() string {
	return "worker"
}

func (c *workerClient) Extract(ctx context.Context, part string) models.ExtractionResult {
	url := fmt.Sprintf("%s/api/v1/extract", c.baseURL)

	body, err := json.Marshal(extractRequest{Part: part})
	if err != nil {
		return models.FailedExtraction(fmt.Sprintf("failed to marshal request: %v", err))
	}

	var lastErr error
	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("part", part).Msg("Retrying extraction")
			select {
			case <-ctx.Done():
				return contextFailure(ctx, part)
			case <-time.After(c.retryDelay * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return contextFailure(ctx, part)
			}
			lastErr = fmt.Errorf("failed to call extraction worker: %w", err)
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			result := DecodeExtraction(payload)
			c.logger.Debug().
				Str("part", part).
				Str("status", result.Status.String()).
				Int("features", result.Measurement.Signature.Len()).
				Msg("Part extracted")
			return result
		}

		// Client errors will not improve on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return models.FailedExtraction(fmt.Sprintf("extraction worker returned status %d: %s", resp.StatusCode, string(payload)))
		}

		lastErr = fmt.Errorf("extraction worker returned status %d: %s", resp.StatusCode, string(payload))
	}

	return models.FailedExtraction(fmt.Sprintf("extraction failed after %d attempts: %v", c.retryCount+1, lastErr))
}

func (c *workerClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("extraction worker unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extraction worker returned status %d", resp.StatusCode)
	}
	return nil
}
