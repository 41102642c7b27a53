package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/alekingreal/ajudaita/internal/core"
	apperrors "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/llm"
	"github.com/alekingreal/ajudaita/internal/metrics"
)

const summarySystemPrompt = "Você resume textos de estudo em português. " +
	"Produza um resumo claro em tópicos, mantendo os conceitos e definições importantes."

// maxSummaryInput bounds the text accepted for summarization. Anything
// longer would blow past the per-minute token ceiling in a single call.
const maxSummaryInput = 24000

// SummaryRequest carries the text to summarize.
type SummaryRequest struct {
	Text string `json:"text"`
}

// SummaryResponse carries the summary and the persisted record ID.
type SummaryResponse struct {
	Summary  string `json:"summary"`
	RecordID string `json:"record_id,omitempty"`
}

// SummaryHandler handles POST /api/summaries.
func SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if assistant == nil {
		respondWithError(w, r, apperrors.NewInternalError("Assistant not configured"))
		return
	}

	var req SummaryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		respondWithError(w, r, apperrors.NewValidationError("text is required"))
		return
	}
	if len(req.Text) > maxSummaryInput {
		respondWithError(w, r, apperrors.NewValidationError("text is too long to summarize in one call"))
		return
	}

	start := time.Now()
	summary, err := assistant.Complete(r.Context(), llm.CompletionRequest{
		System: summarySystemPrompt,
		User:   "Resuma o texto a seguir:\n\n" + req.Text,
	})
	if err != nil {
		metrics.RecordDispatch(string(core.KindSummary), dispatchOutcome(err), time.Since(start))
		respondLLMError(w, r, err)
		return
	}
	metrics.RecordDispatch(string(core.KindSummary), "ok", time.Since(start))

	recordID := persistRecord(r.Context(), ownerFrom(r), core.KindSummary, map[string]any{
		"summary": summary,
	})

	writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary, RecordID: recordID})
}
