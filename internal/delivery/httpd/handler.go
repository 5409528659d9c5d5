package httpd

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/cad-assessment/internal/repository"
	"github.com/RubachokBoss/cad-assessment/internal/service"
	"github.com/RubachokBoss/cad-assessment/internal/service/integration"
	"github.com/RubachokBoss/cad-assessment/internal/worker/pool"
)

type PoolStats interface {
	GetStats() pool.Stats
}

type Handler struct {
	gradingService service.GradingService
	extractor      integration.Extractor
	store          repository.JobStore
	pool           PoolStats
	logger         zerolog.Logger
	maxBodyBytes   int64
	startTime      time.Time
}

func NewHandler(
	gradingService service.GradingService,
	extractor integration.Extractor,
	store repository.JobStore,
	pool PoolStats,
	maxBodyBytes int64,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		gradingService: gradingService,
		extractor:      extractor,
		store:          store,
		pool:           pool,
		logger:         logger,
		maxBodyBytes:   maxBodyBytes,
		startTime:      time.Now(),
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/status", h.GetServiceStatus)

	router.Route("/api/v1/grading", func(r chi.Router) {
		r.Post("/jobs", h.RunJob)
		r.Post("/evaluate", h.Evaluate)
		r.Get("/config", h.GetPolicy)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
