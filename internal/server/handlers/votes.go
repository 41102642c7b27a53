package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/store"
)

// VoteRequest carries the reaction value: +1 or -1.
type VoteRequest struct {
	Value int `json:"value"`
}

// SetVoteHandler handles POST /api/records/{id}/votes.
func SetVoteHandler(w http.ResponseWriter, r *http.Request) {
	if recordStore == nil {
		respondWithError(w, r, apperrors.NewInternalError("Record store not configured"))
		return
	}

	var req VoteRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Value != 1 && req.Value != -1 {
		respondWithError(w, r, apperrors.NewValidationError("value must be +1 or -1"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := recordStore.SetVote(r.Context(), id, ownerFrom(r), req.Value); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			respondWithError(w, r, apperrors.NewNotFoundError("Record not found"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to record vote"))
		return
	}

	counts, err := recordStore.VoteCounts(r.Context(), id)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to count votes"))
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// RemoveVoteHandler handles DELETE /api/records/{id}/votes.
func RemoveVoteHandler(w http.ResponseWriter, r *http.Request) {
	if recordStore == nil {
		respondWithError(w, r, apperrors.NewInternalError("Record store not configured"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := recordStore.RemoveVote(r.Context(), id, ownerFrom(r)); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to remove vote"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VoteCountsHandler handles GET /api/records/{id}/votes.
func VoteCountsHandler(w http.ResponseWriter, r *http.Request) {
	if recordStore == nil {
		respondWithError(w, r, apperrors.NewInternalError("Record store not configured"))
		return
	}

	counts, err := recordStore.VoteCounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to count votes"))
		return
	}

	writeJSON(w, http.StatusOK, counts)
}
