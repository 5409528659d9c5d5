package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type Task func()

// WorkerPool runs tasks on a fixed number of goroutines. Submit hands each
// task directly to an idle worker and blocks until one is free, so a task
// that was accepted is always executed.
type WorkerPool struct {
	tasks      chan Task
	quit       chan struct{}
	wg         sync.WaitGroup
	maxWorkers int
	logger     zerolog.Logger

	startOnce sync.Once
	stopOnce  sync.Once

	busy      atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

type Stats struct {
	MaxWorkers int   `json:"max_workers"`
	Busy       int64 `json:"busy_workers"`
	Completed  int64 `json:"completed_tasks"`
	Panics     int64 `json:"recovered_panics"`
}

func NewWorkerPool(maxWorkers int, logger zerolog.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		tasks:      make(chan Task),
		quit:       make(chan struct{}),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

func (wp *WorkerPool) Start() {
	wp.startOnce.Do(func() {
		wp.logger.Info().Int("max_workers", wp.maxWorkers).Msg("Starting worker pool")

		for i := 0; i < wp.maxWorkers; i++ {
			wp.wg.Add(1)
			go wp.worker(i)
		}
	})
}

// Stop lets running tasks finish and waits for every worker to exit.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		wp.logger.Info().Msg("Stopping worker pool")
		close(wp.quit)
		wp.wg.Wait()
		wp.logger.Info().Int64("completed_tasks", wp.completed.Load()).Msg("Worker pool stopped")
	})
}

// Submit blocks until a worker accepts the task, the context ends or the
// pool stops.
func (wp *WorkerPool) Submit(ctx context.Context, task Task) error {
	select {
	case <-wp.quit:
		return ErrPoolStopped
	default:
	}

	select {
	case wp.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.quit:
		return ErrPoolStopped
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug().Int("worker_id", id).Msg("Worker started")

	for {
		select {
		case <-wp.quit:
			wp.logger.Debug().Int("worker_id", id).Msg("Worker stopped")
			return
		case task := <-wp.tasks:
			wp.run(id, task)
		}
	}
}

func (wp *WorkerPool) run(id int, task Task) {
	wp.busy.Add(1)
	defer func() {
		if r := recover(); r != nil {
			wp.panics.Add(1)
			wp.logger.Error().
				Int("worker_id", id).
				Interface("panic", r).
				Msg("Worker recovered from panic")
		}
		wp.busy.Add(-1)
		wp.completed.Add(1)
	}()

	task()
}

func (wp *WorkerPool) MaxWorkers() int {
	return wp.maxWorkers
}

func (wp *WorkerPool) GetStats() Stats {
	return Stats{
		MaxWorkers: wp.maxWorkers,
		Busy:       wp.busy.Load(),
		Completed:  wp.completed.Load(),
		Panics:     wp.panics.Load(),
	}
}
