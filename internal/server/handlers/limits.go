package handlers

import (
	"net/http"

	apperrors "github.com/alekingreal/ajudaita/internal/errors"
)

// LimitsHandler handles GET /api/llm/limits, exposing the admission gate's
// current window usage and cooldown for diagnostics.
func LimitsHandler(w http.ResponseWriter, r *http.Request) {
	if assistant == nil {
		respondWithError(w, r, apperrors.NewInternalError("Assistant not configured"))
		return
	}

	limiter := assistant.Limiter()
	if limiter == nil {
		respondWithError(w, r, apperrors.NewInternalError("Rate limiter not configured"))
		return
	}

	writeJSON(w, http.StatusOK, limiter.Snapshot())
}
