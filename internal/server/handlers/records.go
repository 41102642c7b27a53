package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alekingreal/ajudaita/internal/core"
	apperrors "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/store"
)

// ListRecordsHandler handles GET /api/records with optional kind and limit
// query parameters.
func ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	if recordStore == nil {
		respondWithError(w, r, apperrors.NewInternalError("Record store not configured"))
		return
	}

	kind := core.RecordKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind != "" && !core.ValidKind(kind) {
		respondWithError(w, r, apperrors.NewValidationError("unknown record kind"))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, r, apperrors.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	records, err := recordStore.ListRecords(r.Context(), ownerFrom(r), kind, limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to list records"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// GetRecordHandler handles GET /api/records/{id}.
func GetRecordHandler(w http.ResponseWriter, r *http.Request) {
	if recordStore == nil {
		respondWithError(w, r, apperrors.NewInternalError("Record store not configured"))
		return
	}

	id := chi.URLParam(r, "id")
	record, err := recordStore.GetRecord(r.Context(), id, ownerFrom(r))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			respondWithError(w, r, apperrors.NewNotFoundError("Record not found"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to fetch record"))
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// DeleteRecordHandler handles DELETE /api/records/{id}.
func DeleteRecordHandler(w http.ResponseWriter, r *http.Request) {
	if recordStore == nil {
		respondWithError(w, r, apperrors.NewInternalError("Record store not configured"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := recordStore.DeleteRecord(r.Context(), id, ownerFrom(r)); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			respondWithError(w, r, apperrors.NewNotFoundError("Record not found"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to delete record"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
