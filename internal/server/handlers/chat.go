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

const chatSystemPrompt = "Você é um assistente de estudos paciente e direto. " +
	"Responda em português, explique passo a passo e use exemplos simples. " +
	"Se a pergunta não for sobre estudos, redirecione gentilmente."

// maxChatHistory bounds how many prior turns travel with each request.
const maxChatHistory = 10

// ChatRequest is one student question, optionally with prior turns and
// attached images (photos of exercises).
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
	Images  []string      `json:"images,omitempty"`
}

// ChatMessage is one prior turn in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse carries the answer and the ID of the persisted exchange.
type ChatResponse struct {
	Answer   string `json:"answer"`
	RecordID string `json:"record_id,omitempty"`
}

// ChatHandler handles POST /api/chat.
func ChatHandler(w http.ResponseWriter, r *http.Request) {
	if assistant == nil {
		respondWithError(w, r, apperrors.NewInternalError("Assistant not configured"))
		return
	}

	var req ChatRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		respondWithError(w, r, apperrors.NewValidationError("message is required"))
		return
	}

	start := time.Now()
	completion := llm.CompletionRequest{
		System: chatSystemPrompt,
		User:   buildChatPrompt(req),
	}

	var (
		answer string
		err    error
	)
	if len(req.Images) > 0 {
		answer, err = assistant.CompleteVision(r.Context(), llm.VisionRequest{
			CompletionRequest: completion,
			Images:            req.Images,
		})
	} else {
		answer, err = assistant.Complete(r.Context(), completion)
	}

	if err != nil {
		metrics.RecordDispatch(string(core.KindChat), dispatchOutcome(err), time.Since(start))
		respondLLMError(w, r, err)
		return
	}
	metrics.RecordDispatch(string(core.KindChat), "ok", time.Since(start))

	owner := ownerFrom(r)
	recordID := persistRecord(r.Context(), owner, core.KindChat, map[string]any{
		"question": req.Message,
		"answer":   answer,
	})

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer, RecordID: recordID})
}

// buildChatPrompt folds the bounded history into a single user prompt so the
// token estimate sees everything that will be sent.
func buildChatPrompt(req ChatRequest) string {
	history := req.History
	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}

	if len(history) == 0 {
		return req.Message
	}

	var b strings.Builder
	b.WriteString("Conversa até agora:\n")
	for _, turn := range history {
		role := "Aluno"
		if turn.Role == "assistant" {
			role = "Assistente"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(turn.Content))
		b.WriteString("\n")
	}
	b.WriteString("\nNova pergunta: ")
	b.WriteString(req.Message)
	return b.String()
}
