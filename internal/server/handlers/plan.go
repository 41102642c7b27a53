package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alekingreal/ajudaita/internal/core"
	apperrors "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/llm"
	"github.com/alekingreal/ajudaita/internal/metrics"
)

const planSystemPrompt = "Você monta planos de estudo em português. " +
	`Responda apenas com JSON no formato {"days":[{"day":1,"focus":"...","tasks":["..."]}]}.`

// PlanRequest asks for a study plan over a number of days.
type PlanRequest struct {
	Subject string `json:"subject"`
	Days    int    `json:"days"`
}

// PlanResponse carries the plan. Generated is false when the local fallback
// produced it.
type PlanResponse struct {
	Plan      core.Plan `json:"plan"`
	Generated bool      `json:"generated"`
	RecordID  string    `json:"record_id,omitempty"`
}

// PlanHandler handles POST /api/plans. A failed generation never fails the
// request; the deterministic local plan takes its place.
func PlanHandler(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		respondWithError(w, r, apperrors.NewValidationError("subject is required"))
		return
	}
	if req.Days <= 0 {
		req.Days = 7
	}

	plan, generated := generatePlan(r, req)

	recordID := persistRecord(r.Context(), ownerFrom(r), core.KindPlan, plan)

	writeJSON(w, http.StatusOK, PlanResponse{Plan: plan, Generated: generated, RecordID: recordID})
}

func generatePlan(r *http.Request, req PlanRequest) (core.Plan, bool) {
	if assistant == nil {
		return core.FallbackPlan(req.Subject, req.Days), false
	}

	start := time.Now()
	parsed, err := assistant.CompleteJSON(r.Context(), llm.CompletionRequest{
		System: planSystemPrompt,
		User:   planPrompt(req),
	})
	if err != nil {
		metrics.RecordDispatch(string(core.KindPlan), dispatchOutcome(err), time.Since(start))
		return core.FallbackPlan(req.Subject, req.Days), false
	}

	plan, ok := decodePlan(req.Subject, parsed)
	if !ok {
		metrics.RecordDispatch(string(core.KindPlan), "no_answer", time.Since(start))
		return core.FallbackPlan(req.Subject, req.Days), false
	}

	metrics.RecordDispatch(string(core.KindPlan), "ok", time.Since(start))
	return plan, true
}

func planPrompt(req PlanRequest) string {
	return fmt.Sprintf("Monte um plano de estudos de %s com duração de %d dias.",
		strings.TrimSpace(req.Subject), req.Days)
}

// decodePlan converts the generated JSON into a Plan, rejecting shapes that
// would render as an empty plan.
func decodePlan(subject string, parsed map[string]any) (core.Plan, bool) {
	raw, err := json.Marshal(parsed)
	if err != nil {
		return core.Plan{}, false
	}

	var plan core.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return core.Plan{}, false
	}
	if len(plan.Days) == 0 {
		return core.Plan{}, false
	}

	plan.Subject = subject
	for i := range plan.Days {
		if plan.Days[i].Day == 0 {
			plan.Days[i].Day = i + 1
		}
	}
	return plan, true
}
