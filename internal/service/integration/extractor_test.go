package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/cad-assessment/internal/repository"
	"github.com/RubachokBoss/cad-assessment/internal/service/integration"
)

func newWorker(t *testing.T, handler http.HandlerFunc) integration.Extractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return integration.NewWorkerClient(srv.URL, 2*time.Second, 2, time.Millisecond, zerolog.Nop())
}

func TestWorkerClientExtract(t *testing.T) {
	var gotPart string
	worker := newWorker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/extract", r.URL.Path)

		var req struct {
			Part string `json:"part"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPart = req.Part

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, workerPayload)
	})

	res := worker.Extract(context.Background(), "job1/101_bracket.sldprt")
	assert.True(t, res.Succeeded())
	assert.Equal(t, "job1/101_bracket.sldprt", gotPart)
	assert.Len(t, res.Measurement.Signature, 3)
	assert.Equal(t, "worker", worker.Name())
}

func TestWorkerClientRetriesServerErrors(t *testing.T) {
	var calls int32
	worker := newWorker(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"status":"Success","volume_mm3":5}`)
	})

	res := worker.Extract(context.Background(), "p.sldprt")
	assert.True(t, res.Succeeded())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWorkerClientGivesUpAsFailedExtraction(t *testing.T) {
	var calls int32
	worker := newWorker(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	})

	res := worker.Extract(context.Background(), "p.sldprt")
	assert.False(t, res.Succeeded())
	assert.Contains(t, res.Error, "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWorkerClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	worker := newWorker(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unknown part", http.StatusNotFound)
	})

	res := worker.Extract(context.Background(), "p.sldprt")
	assert.False(t, res.Succeeded())
	assert.Contains(t, res.Error, "status 404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWorkerClientTimeoutDegrades(t *testing.T) {
	release := make(chan struct{})
	worker := newWorker(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := worker.Extract(ctx, "slow.sldprt")
	assert.False(t, res.Succeeded())
	assert.Contains(t, res.Error, "timed out")
}

func TestWorkerClientPing(t *testing.T) {
	worker := newWorker(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	})
	assert.NoError(t, worker.Ping(context.Background()))
}

type fakeStore struct {
	files map[string][]byte
	err   error
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.files[key]
	return ok, f.err
}

func (f *fakeStore) List(context.Context, string) ([]string, error) {
	return nil, f.err
}

func (f *fakeStore) Read(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, repository.ErrObjectNotFound)
	}
	return data, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.err }
func (f *fakeStore) Provider() string           { return "fake" }

func TestDocumentExtractorReadsSiblingJSON(t *testing.T) {
	store := &fakeStore{files: map[string][]byte{
		"job/101_bracket.json": []byte(workerPayload),
	}}
	ex := integration.NewDocumentExtractor(store, zerolog.Nop())

	res := ex.Extract(context.Background(), "job/101_bracket.SLDPRT")
	assert.True(t, res.Succeeded())
	assert.Equal(t, 1000.5, res.Measurement.VolumeMM3)

	missing := ex.Extract(context.Background(), "job/102_bracket.sldprt")
	assert.False(t, missing.Succeeded())
	assert.Contains(t, missing.Error, "no extraction document")

	assert.Equal(t, "job/a.b.json", integration.DocumentKey("job/a.b.sldprt"))
}

func TestDocumentExtractorStoreFailureDegrades(t *testing.T) {
	ex := integration.NewDocumentExtractor(&fakeStore{err: fmt.Errorf("disk gone")}, zerolog.Nop())

	res := ex.Extract(context.Background(), "x.sldprt")
	assert.False(t, res.Succeeded())
	assert.Contains(t, res.Error, "disk gone")
	assert.Error(t, ex.Ping(context.Background()))
}

func TestStaticExtractor(t *testing.T) {
	payloads := map[string][]byte{"a.sldprt": []byte(`{"status":"Success","volume_mm3":1}`)}
	ex := integration.NewStaticExtractor(payloads)
	delete(payloads, "a.sldprt")

	assert.True(t, ex.Extract(context.Background(), "a.sldprt").Succeeded())
	assert.False(t, ex.Extract(context.Background(), "b.sldprt").Succeeded())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Contains(t, ex.Extract(ctx, "a.sldprt").Error, "cancelled")
}
