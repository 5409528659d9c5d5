package httpd

import (
	"context"
	"errors"
	"net/http"

	"github.com/RubachokBoss/cad-assessment/internal/models"
	"github.com/RubachokBoss/cad-assessment/internal/worker/pool"
)

// RunJob grades part files already present in the job store and returns the
// full result synchronously.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	var req models.GradingJobRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.gradingService.RunJob(r.Context(), req)
	if err != nil {
		h.handleGradingError(w, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.gradingService.Evaluate(r.Context(), req)
	if err != nil {
		h.handleGradingError(w, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.gradingService.Policy())
}

func (h *Handler) handleGradingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidJob), errors.Is(err, models.ErrNoSubmissions):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrMasterNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrMasterExtraction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrJobTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, pool.ErrPoolStopped), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "Grading is shutting down")
	default:
		h.logger.Error().Err(err).Msg("Grading job failed")
		writeError(w, http.StatusInternalServerError, "Failed to grade submissions")
	}
}
