package httpd

import (
	"context"
	"net/http"
	"time"

	"github.com/RubachokBoss/cad-assessment/internal/models"
)

const pingTimeout = 2 * time.Second

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	stats := h.gradingService.Stats()
	response := models.HealthCheckResponse{
		Status:        "healthy",
		Extraction:    pingStatus(ctx, h.extractor.Ping),
		Storage:       pingStatus(ctx, h.store.Ping),
		MaxWorkers:    h.pool.GetStats().MaxWorkers,
		JobsCompleted: stats.JobsCompleted,
		JobsFailed:    stats.JobsFailed,
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:     time.Now().UTC(),
	}

	status := http.StatusOK
	if response.Extraction != "ok" || response.Storage != "ok" {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func pingStatus(ctx context.Context, ping func(context.Context) error) string {
	if err := ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

func (h *Handler) GetServiceStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"service":    "cad-assessment",
		"extraction": h.extractor.Name(),
		"storage":    h.store.Provider(),
		"grading":    h.gradingService.Stats(),
		"pool":       h.pool.GetStats(),
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
		"timestamp":  time.Now().UTC(),
	})
}
