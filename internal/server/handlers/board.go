package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alekingreal/ajudaita/internal/core"
	apperrors "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/llm"
	"github.com/alekingreal/ajudaita/internal/metrics"
)

const boardSystemPrompt = "Você cria quadros de revisão (flashcards) em português. " +
	`Responda apenas com JSON no formato {"title":"...","cards":[{"front":"...","back":"..."}]}.`

// BoardRequest asks for a flashcard board about a topic.
type BoardRequest struct {
	Topic string `json:"topic"`
	Cards int    `json:"cards"`
}

// BoardResponse carries the generated board and the persisted record ID.
type BoardResponse struct {
	Board    map[string]any `json:"board"`
	RecordID string         `json:"record_id,omitempty"`
}

// BoardGenerateHandler handles POST /api/boards/generate.
func BoardGenerateHandler(w http.ResponseWriter, r *http.Request) {
	if assistant == nil {
		respondWithError(w, r, apperrors.NewInternalError("Assistant not configured"))
		return
	}

	var req BoardRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		respondWithError(w, r, apperrors.NewValidationError("topic is required"))
		return
	}
	if req.Cards <= 0 || req.Cards > 30 {
		req.Cards = 10
	}

	start := time.Now()
	board, err := assistant.CompleteJSON(r.Context(), llm.CompletionRequest{
		System: boardSystemPrompt,
		User:   fmtBoardPrompt(req),
	})
	if err != nil {
		metrics.RecordDispatch(string(core.KindBoard), dispatchOutcome(err), time.Since(start))
		respondLLMError(w, r, err)
		return
	}
	metrics.RecordDispatch(string(core.KindBoard), "ok", time.Since(start))

	recordID := persistRecord(r.Context(), ownerFrom(r), core.KindBoard, board)

	writeJSON(w, http.StatusOK, BoardResponse{Board: board, RecordID: recordID})
}

func fmtBoardPrompt(req BoardRequest) string {
	return fmt.Sprintf("Crie um quadro de revisão sobre %s com %d cartões.", req.Topic, req.Cards)
}
