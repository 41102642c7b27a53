package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/alekingreal/ajudaita/internal/core"
)

// newRecordRouter mounts the record and vote handlers the way routes.go
// does, so chi URL params resolve.
func newRecordRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/records", ListRecordsHandler)
	r.Get("/api/records/{id}", GetRecordHandler)
	r.Delete("/api/records/{id}", DeleteRecordHandler)
	r.Post("/api/records/{id}/votes", SetVoteHandler)
	r.Delete("/api/records/{id}/votes", RemoveVoteHandler)
	r.Get("/api/records/{id}/votes", VoteCountsHandler)
	return r
}

func doRequest(router http.Handler, method, path, body, owner string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-ID", owner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListRecordsFiltersAndScopes(t *testing.T) {
	mem := setupHandlers(t, &fakeAssistant{})
	router := newRecordRouter()

	_, err := mem.CreateRecord(context.Background(), "aluno-1", core.KindChat, `{}`)
	require.NoError(t, err)
	_, err = mem.CreateRecord(context.Background(), "aluno-1", core.KindPlan, `{}`)
	require.NoError(t, err)
	_, err = mem.CreateRecord(context.Background(), "aluno-2", core.KindChat, `{}`)
	require.NoError(t, err)

	rec := doRequest(router, http.MethodGet, "/api/records?kind=chat", "", "aluno-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Records []core.Record `json:"records"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Records, 1)
	require.Equal(t, "aluno-1", resp.Records[0].Owner)
}

func TestListRecordsRejectsUnknownKind(t *testing.T) {
	setupHandlers(t, &fakeAssistant{})
	router := newRecordRouter()

	rec := doRequest(router, http.MethodGet, "/api/records?kind=bogus", "", "aluno-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndDeleteRecordScopedToOwner(t *testing.T) {
	mem := setupHandlers(t, &fakeAssistant{})
	router := newRecordRouter()

	created, err := mem.CreateRecord(context.Background(), "aluno-1", core.KindSummary, `{"x":1}`)
	require.NoError(t, err)

	rec := doRequest(router, http.MethodGet, "/api/records/"+created.ID, "", "aluno-2")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/records/"+created.ID, "", "aluno-1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/api/records/"+created.ID, "", "aluno-2")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/api/records/"+created.ID, "", "aluno-1")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestVoteFlow(t *testing.T) {
	mem := setupHandlers(t, &fakeAssistant{})
	router := newRecordRouter()

	created, err := mem.CreateRecord(context.Background(), "aluno-1", core.KindBoard, `{}`)
	require.NoError(t, err)

	rec := doRequest(router, http.MethodPost, "/api/records/"+created.ID+"/votes", `{"value":1}`, "aluno-2")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts core.VoteCounts
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	require.Equal(t, 1, counts.Up)

	rec = doRequest(router, http.MethodPost, "/api/records/"+created.ID+"/votes", `{"value":0}`, "aluno-2")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/records/missing/votes", `{"value":1}`, "aluno-2")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/api/records/"+created.ID+"/votes", "", "aluno-2")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/records/"+created.ID+"/votes", "", "aluno-2")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	require.Equal(t, 0, counts.Up)
}

func TestLimitsHandlerReportsSnapshot(t *testing.T) {
	setupHandlers(t, &fakeAssistant{})

	req := httptest.NewRequest(http.MethodGet, "/api/llm/limits", nil)
	rec := httptest.NewRecorder()
	LimitsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	require.Contains(t, snapshot, "request_limit")
	require.Contains(t, snapshot, "token_limit")
	require.Contains(t, snapshot, "cooldown_ms")
}
