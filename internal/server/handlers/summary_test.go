package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekingreal/ajudaita/internal/core"
)

func TestSummaryHandlerSummarizesAndPersists(t *testing.T) {
	fake := &fakeAssistant{answer: "- ponto um\n- ponto dois"}
	mem := setupHandlers(t, fake)

	rec := postJSON(t, SummaryHandler, "/api/summaries", `{"text":"um texto longo sobre células"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Contains(t, resp.Summary, "ponto um")
	require.NotEmpty(t, resp.RecordID)
	require.Equal(t, core.KindSummary, mem.records[resp.RecordID].Kind)

	// The source text travels in the user prompt, not the system prompt.
	require.Contains(t, fake.lastReq.User, "células")
}

func TestSummaryHandlerRejectsEmptyAndOversizedText(t *testing.T) {
	setupHandlers(t, &fakeAssistant{answer: "x"})

	rec := postJSON(t, SummaryHandler, "/api/summaries", `{"text":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	huge := strings.Repeat("a", maxSummaryInput+1)
	rec = postJSON(t, SummaryHandler, "/api/summaries", `{"text":"`+huge+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoardGenerateHandlerReturnsBoard(t *testing.T) {
	fake := &fakeAssistant{jsonAnswer: map[string]any{
		"title": "Revolução Francesa",
		"cards": []any{
			map[string]any{"front": "Quando começou?", "back": "1789"},
		},
	}}
	mem := setupHandlers(t, fake)

	rec := postJSON(t, BoardGenerateHandler, "/api/boards/generate", `{"topic":"Revolução Francesa"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BoardResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "Revolução Francesa", resp.Board["title"])
	require.NotEmpty(t, resp.RecordID)
	require.Equal(t, core.KindBoard, mem.records[resp.RecordID].Kind)
}

func TestBoardGenerateHandlerRequiresTopic(t *testing.T) {
	setupHandlers(t, &fakeAssistant{})

	rec := postJSON(t, BoardGenerateHandler, "/api/boards/generate", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
