package pool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/cad-assessment/internal/worker/pool"
)

func TestPoolRunsEverySubmittedTask(t *testing.T) {
	wp := pool.NewWorkerPool(3, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	var (
		wg  sync.WaitGroup
		ran atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.NoError(t, wp.Submit(context.Background(), func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int64(50), ran.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const workers = 2
	wp := pool.NewWorkerPool(workers, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	var (
		wg         sync.WaitGroup
		current    atomic.Int64
		maxCurrent atomic.Int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, wp.Submit(context.Background(), func() {
			defer wg.Done()
			n := current.Add(1)
			for {
				m := maxCurrent.Load()
				if n <= m || maxCurrent.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, maxCurrent.Load(), int64(workers))
}

func TestPoolRecoversFromPanics(t *testing.T) {
	wp := pool.NewWorkerPool(1, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	done := make(chan struct{})
	require.NoError(t, wp.Submit(context.Background(), func() { panic("boom") }))
	require.NoError(t, wp.Submit(context.Background(), func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive the panic")
	}
	assert.Equal(t, int64(1), wp.GetStats().Panics)
}

func TestSubmitHonoursContext(t *testing.T) {
	wp := pool.NewWorkerPool(1, zerolog.Nop())
	wp.Start()
	defer wp.Stop()

	release := make(chan struct{})
	require.NoError(t, wp.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := wp.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestSubmitAfterStop(t *testing.T) {
	wp := pool.NewWorkerPool(2, zerolog.Nop())
	wp.Start()
	wp.Stop()
	wp.Stop()

	assert.ErrorIs(t, wp.Submit(context.Background(), func() {}), pool.ErrPoolStopped)
	assert.Equal(t, 2, wp.MaxWorkers())
}
