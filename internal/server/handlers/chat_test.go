package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alekingreal/ajudaita/internal/core"
	apperrors "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/llm"
	"github.com/alekingreal/ajudaita/internal/store"
)

// fakeAssistant scripts the LLM service surface for handler tests.
type fakeAssistant struct {
	answer     string
	jsonAnswer map[string]any
	err        error
	limiter    *llm.RateLimiter

	lastReq       llm.CompletionRequest
	visionCalls   int
	completeCalls int
}

func (f *fakeAssistant) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.completeCalls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeAssistant) CompleteJSON(ctx context.Context, req llm.CompletionRequest) (map[string]any, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.jsonAnswer, nil
}

func (f *fakeAssistant) CompleteVision(ctx context.Context, req llm.VisionRequest) (string, error) {
	f.visionCalls++
	f.lastReq = req.CompletionRequest
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeAssistant) Limiter() *llm.RateLimiter {
	if f.limiter == nil {
		f.limiter = llm.NewRateLimiter(3, 12000)
	}
	return f.limiter
}

func errRecordNotFound() error {
	return store.ErrRecordNotFound
}

// memoryStore is an in-memory RecordStore for handler tests.
type memoryStore struct {
	records map[string]core.Record
	votes   map[string]map[string]int
	nextID  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records: make(map[string]core.Record),
		votes:   make(map[string]map[string]int),
	}
}

func (m *memoryStore) CreateRecord(ctx context.Context, owner string, kind core.RecordKind, payload string) (*core.Record, error) {
	m.nextID++
	record := core.Record{
		ID:        fmt.Sprintf("rec-%03d", m.nextID),
		Owner:     owner,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	m.records[record.ID] = record
	return &record, nil
}

func (m *memoryStore) GetRecord(ctx context.Context, id, owner string) (*core.Record, error) {
	record, ok := m.records[id]
	if !ok || record.Owner != owner {
		return nil, errRecordNotFound()
	}
	return &record, nil
}

func (m *memoryStore) ListRecords(ctx context.Context, owner string, kind core.RecordKind, limit int) ([]core.Record, error) {
	var out []core.Record
	for _, record := range m.records {
		if record.Owner != owner {
			continue
		}
		if kind != "" && record.Kind != kind {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (m *memoryStore) DeleteRecord(ctx context.Context, id, owner string) error {
	record, ok := m.records[id]
	if !ok || record.Owner != owner {
		return errRecordNotFound()
	}
	delete(m.records, id)
	return nil
}

func (m *memoryStore) SetVote(ctx context.Context, recordID, voter string, value int) error {
	if _, ok := m.records[recordID]; !ok {
		return errRecordNotFound()
	}
	if m.votes[recordID] == nil {
		m.votes[recordID] = make(map[string]int)
	}
	m.votes[recordID][voter] = value
	return nil
}

func (m *memoryStore) RemoveVote(ctx context.Context, recordID, voter string) error {
	delete(m.votes[recordID], voter)
	return nil
}

func (m *memoryStore) VoteCounts(ctx context.Context, recordID string) (core.VoteCounts, error) {
	var counts core.VoteCounts
	for _, value := range m.votes[recordID] {
		if value > 0 {
			counts.Up++
		} else {
			counts.Down++
		}
	}
	return counts, nil
}

func setupHandlers(t *testing.T, fake *fakeAssistant) *memoryStore {
	t.Helper()

	mem := newMemoryStore()
	SetAssistant(fake)
	SetRecordStore(mem)
	ResetHTTPErrorResponder()

	t.Cleanup(func() {
		SetAssistant(nil)
		SetRecordStore(nil)
	})
	return mem
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "aluno-1")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestChatHandlerAnswersAndPersists(t *testing.T) {
	fake := &fakeAssistant{answer: "a resposta"}
	mem := setupHandlers(t, fake)

	rec := postJSON(t, ChatHandler, "/api/chat", `{"message":"o que é fotossíntese?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "a resposta", resp.Answer)
	require.NotEmpty(t, resp.RecordID)

	stored, ok := mem.records[resp.RecordID]
	require.True(t, ok)
	require.Equal(t, core.KindChat, stored.Kind)
	require.Equal(t, "aluno-1", stored.Owner)
}

func TestChatHandlerRequiresMessage(t *testing.T) {
	setupHandlers(t, &fakeAssistant{answer: "x"})

	rec := postJSON(t, ChatHandler, "/api/chat", `{"message":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION_FAILED", decodeErrorBody(t, rec).Error.Code)
}

func TestChatHandlerThrottledSetsRetryAfter(t *testing.T) {
	fake := &fakeAssistant{err: &llm.ThrottledError{RetryAfter: 21 * time.Second}}
	setupHandlers(t, fake)

	rec := postJSON(t, ChatHandler, "/api/chat", `{"message":"oi"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "21", rec.Header().Get("Retry-After"))

	body := decodeErrorBody(t, rec)
	require.Equal(t, "RATE_LIMITED", body.Error.Code)
	require.Contains(t, body.Error.Message, "21s")
}

func TestChatHandlerQuotaExhaustionIsDistinct(t *testing.T) {
	fake := &fakeAssistant{err: &llm.QuotaExhaustedError{Message: "quota"}}
	setupHandlers(t, fake)

	rec := postJSON(t, ChatHandler, "/api/chat", `{"message":"oi"}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, "INSUFFICIENT_QUOTA", decodeErrorBody(t, rec).Error.Code)
	require.Empty(t, rec.Header().Get("Retry-After"))
}

func TestChatHandlerOpaqueFailureIs502(t *testing.T) {
	fake := &fakeAssistant{err: llm.ErrNoAnswer}
	setupHandlers(t, fake)

	rec := postJSON(t, ChatHandler, "/api/chat", `{"message":"oi"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decodeErrorBody(t, rec)
	require.Equal(t, "EXTERNAL_SERVICE_ERROR", body.Error.Code)
	// The opaque message never leaks provider details.
	require.NotContains(t, strings.ToLower(body.Error.Message), "openai")
}

func TestChatHandlerRoutesImagesToVision(t *testing.T) {
	fake := &fakeAssistant{answer: "é um triângulo"}
	setupHandlers(t, fake)

	rec := postJSON(t, ChatHandler, "/api/chat",
		`{"message":"que figura é essa?","images":["data:image/png;base64,AAAA"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, fake.visionCalls)
	require.Equal(t, 0, fake.completeCalls)
}

func TestBuildChatPromptBoundsHistory(t *testing.T) {
	history := make([]ChatMessage, 20)
	for i := range history {
		history[i] = ChatMessage{Role: "user", Content: "pergunta antiga"}
	}

	prompt := buildChatPrompt(ChatRequest{Message: "pergunta nova", History: history})
	require.Equal(t, maxChatHistory, strings.Count(prompt, "pergunta antiga"))
	require.Contains(t, prompt, "pergunta nova")
}
