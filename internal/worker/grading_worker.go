package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/service"
	"github.com/RubachokBoss/cad-assessment/internal/worker/queue"
)

type GradingWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	TotalProcessed int       `json:"total_processed"`
	FailedJobs     int       `json:"failed_jobs"`
	Requeued       int       `json:"requeued"`
	LastJobAt      time.Time `json:"last_job_at"`
}

// Routing names the exchange and keys used for result events.
type Routing struct {
	Exchange     string
	CompletedKey string
	FailedKey    string
}

type gradingWorker struct {
	consumer  queue.Consumer
	publisher queue.Publisher
	service   service.GradingService
	routing   Routing
	logger    zerolog.Logger

	stats      WorkerStats
	statsMutex sync.RWMutex
	startTime  time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewGradingWorker builds a worker that grades one job message at a time.
// Per-student fan-out happens inside the grading service on the shared pool,
// so jobs are never scheduled on that pool themselves.
func NewGradingWorker(
	consumer queue.Consumer,
	publisher queue.Publisher,
	gradingService service.GradingService,
	routing Routing,
	logger zerolog.Logger,
) GradingWorker {
	return &gradingWorker{
		consumer:  consumer,
		publisher: publisher,
		service:   gradingService,
		routing:   routing,
		logger:    logger,
		startTime: time.Now(),
	}
}

func (w *gradingWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting grading worker...")

	ctx, cancel := context.WithCancel(ctx)

	msgs, err := w.consumer.Consume(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	w.cancel = cancel
	w.done = make(chan struct{})
	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Grading worker started successfully")
	return nil
}

func (w *gradingWorker) Stop() error {
	w.logger.Info().Msg("Stopping grading worker...")

	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	if w.cancel != nil {
		w.cancel()
		<-w.done
	}

	stats := w.GetStats()
	w.logger.Info().
		Int("total_processed", stats.TotalProcessed).
		Int("failed_jobs", stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Grading worker stopped")

	return nil
}

func (w *gradingWorker) processMessages(ctx context.Context, msgs <-chan queue.Message) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message processing")
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("Message channel closed")
				return
			}
			w.settle(msg, w.processMessage(ctx, msg.Body))
		}
	}
}

// settle acks successful and permanently failed messages and requeues the
// rest.
func (w *gradingWorker) settle(msg queue.Message, err error) {
	w.statsMutex.Lock()
	w.stats.LastJobAt = time.Now()
	switch {
	case err == nil:
		w.stats.TotalProcessed++
	case isPermanentError(err):
		w.stats.FailedJobs++
	default:
		w.stats.Requeued++
	}
	w.statsMutex.Unlock()

	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		return
	}

	w.logger.Error().Err(err).Msg("Failed to process message")

	if isPermanentError(err) {
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		return
	}

	if nackErr := msg.Nack(false, true); nackErr != nil {
		w.logger.Error().Err(nackErr).Msg("Failed to nack message")
	}
}

func (w *gradingWorker) processMessage(ctx context.Context, body []byte) error {
	var event models.GradingRequestedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal event: %w", err))
	}

	if strings.TrimSpace(event.Master) == "" {
		w.publishFailed(ctx, event.JobID, models.ErrInvalidJob, errors.New("empty master"))
		return permanent(errors.New("empty master"))
	}

	w.logger.Info().
		Str("job_id", event.JobID).
		Str("master", event.Master).
		Str("prefix", event.Prefix).
		Int("submissions", len(event.Submissions)).
		Msg("Processing grading job")

	startTime := time.Now()
	result, err := w.service.RunJob(ctx, models.GradingJobRequest{
		JobID:       event.JobID,
		Master:      event.Master,
		Prefix:      event.Prefix,
		Submissions: event.Submissions,
	})
	if err != nil {
		var jobErr *models.JobError
		if errors.As(err, &jobErr) {
			w.publishFailed(ctx, jobErr.JobID, jobErr.Reason, err)
			return permanent(err)
		}
		return fmt.Errorf("failed to grade job %s: %w", event.JobID, err)
	}

	completed := models.GradingCompletedEvent{
		JobID:       result.JobID,
		Master:      result.Master.FileName,
		Summary:     result.Summary,
		ProcessedMs: int(time.Since(startTime).Milliseconds()),
		CompletedAt: time.Now(),
	}

	body, err = json.Marshal(completed)
	if err != nil {
		return permanent(fmt.Errorf("failed to marshal completed event: %w", err))
	}

	if err := w.publisher.Publish(ctx, w.routing.Exchange, w.routing.CompletedKey, body); err != nil {
		return fmt.Errorf("failed to publish completed event: %w", err)
	}

	w.logger.Info().
		Str("job_id", result.JobID).
		Int("students", result.Summary.TotalStudents).
		Int("processing_time_ms", completed.ProcessedMs).
		Msg("Grading job completed")

	return nil
}

func (w *gradingWorker) publishFailed(ctx context.Context, jobID string, reason, err error) {
	event := models.GradingFailedEvent{
		JobID:    jobID,
		Reason:   reason.Error(),
		Error:    err.Error(),
		FailedAt: time.Now(),
	}

	body, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		w.logger.Error().Err(marshalErr).Msg("Failed to marshal failed event")
		return
	}

	if pubErr := w.publisher.Publish(ctx, w.routing.Exchange, w.routing.FailedKey, body); pubErr != nil {
		w.logger.Error().Err(pubErr).Str("job_id", jobID).Msg("Failed to publish failed event")
	}
}

func (w *gradingWorker) GetStats() WorkerStats {
	w.statsMutex.RLock()
	defer w.statsMutex.RUnlock()
	return w.stats
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
