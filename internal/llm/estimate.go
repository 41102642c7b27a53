package llm

// Token estimation uses a fixed characters-per-token ratio instead of an
// exact tokenizer. The estimate only has to be conservative enough to keep
// the admission gate from letting a burst blow the provider-side limit.
const charsPerToken = 4

// VisionSurcharge is the fixed token weight added per attached image before
// requesting admission. Image token cost is not cheaply predictable ahead of
// time, so a flat surcharge stands in for it.
const VisionSurcharge = 1000

// EstimateTokens approximates the token count of a text string. Empty text
// costs nothing.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// EstimateCallCost approximates the total token cost of a completion call:
// both prompts plus the requested output budget.
func EstimateCallCost(system, user string, maxOutput int) int {
	cost := EstimateTokens(system) + EstimateTokens(user)
	if maxOutput > 0 {
		cost += maxOutput
	}
	return cost
}
