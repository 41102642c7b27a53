package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alekingreal/ajudaita/internal/core"
	apperrors "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/llm"
	"github.com/alekingreal/ajudaita/internal/metrics"
)

// Assistant is the slice of the LLM service the handlers use. Tests inject
// fakes through SetAssistant.
type Assistant interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
	CompleteJSON(ctx context.Context, req llm.CompletionRequest) (map[string]any, error)
	CompleteVision(ctx context.Context, req llm.VisionRequest) (string, error)
	Limiter() *llm.RateLimiter
}

// RecordStore is the persistence surface the handlers use. *store.Store
// satisfies it.
type RecordStore interface {
	CreateRecord(ctx context.Context, owner string, kind core.RecordKind, payload string) (*core.Record, error)
	GetRecord(ctx context.Context, id, owner string) (*core.Record, error)
	ListRecords(ctx context.Context, owner string, kind core.RecordKind, limit int) ([]core.Record, error)
	DeleteRecord(ctx context.Context, id, owner string) error
	SetVote(ctx context.Context, recordID, voter string, value int) error
	RemoveVote(ctx context.Context, recordID, voter string) error
	VoteCounts(ctx context.Context, recordID string) (core.VoteCounts, error)
}

var (
	assistant   Assistant
	recordStore RecordStore
)

// SetAssistant injects the LLM service used by the chat, summary, plan and
// board handlers.
func SetAssistant(a Assistant) {
	assistant = a
}

// SetRecordStore injects the record store used by the persistence handlers.
func SetRecordStore(s RecordStore) {
	recordStore = s
}

// ownerFrom resolves the requesting user. There is no auth layer; the
// frontend identifies the student with a header.
func ownerFrom(r *http.Request) string {
	if owner := strings.TrimSpace(r.Header.Get("X-User-ID")); owner != "" {
		return owner
	}
	return "anonymous"
}

// dispatchOutcome names the failure class for the dispatch metric.
func dispatchOutcome(err error) string {
	var throttled *llm.ThrottledError
	if errors.As(err, &throttled) {
		return "throttled"
	}
	var quota *llm.QuotaExhaustedError
	if errors.As(err, &quota) {
		return "quota"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "no_answer"
}

// respondLLMError maps dispatcher failures onto the wire contract:
// throttling is 429 with Retry-After, quota exhaustion is its own signal,
// and everything else is an opaque 502.
func respondLLMError(w http.ResponseWriter, r *http.Request, err error) {
	var throttled *llm.ThrottledError
	if errors.As(err, &throttled) {
		w.Header().Set("Retry-After", strconv.Itoa(throttled.RetryAfterSec()))
		envelope := apperrors.NewRateLimitedError(
			fmt.Sprintf("O assistente está ocupado. Tente novamente em %ds.", throttled.RetryAfterSec()))
		respondWithError(w, r, envelope)
		return
	}

	var quota *llm.QuotaExhaustedError
	if errors.As(err, &quota) {
		envelope := apperrors.NewQuotaExhaustedError(
			"O limite de uso do assistente acabou. Avise o responsável pela conta.")
		respondWithError(w, r, envelope)
		return
	}

	envelope := apperrors.NewExternalServiceError("O assistente não conseguiu responder agora. Tente de novo.")
	respondWithError(w, r, envelope)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid JSON body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// persistRecord stores the artifact produced by a handler. Persistence
// failures never break the response the student already earned; they are
// logged by the store metrics instead.
func persistRecord(ctx context.Context, owner string, kind core.RecordKind, payload any) string {
	if recordStore == nil {
		return ""
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		metrics.RecordStoreOperation("create", false)
		return ""
	}

	record, err := recordStore.CreateRecord(ctx, owner, kind, string(raw))
	if err != nil {
		metrics.RecordStoreOperation("create", false)
		return ""
	}
	metrics.RecordStoreOperation("create", true)
	return record.ID
}
