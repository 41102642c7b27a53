package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateTokensEmpty(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	require.Equal(t, 1, EstimateTokens("abc"))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 2, EstimateTokens("abcde"))
	require.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestEstimateCallCost(t *testing.T) {
	system := strings.Repeat("s", 400) // 100 tokens
	user := strings.Repeat("u", 200)   // 50 tokens

	require.Equal(t, 150, EstimateCallCost(system, user, 0))
	require.Equal(t, 650, EstimateCallCost(system, user, 500))
	require.Equal(t, 500, EstimateCallCost("", "", 500))
	require.Equal(t, 0, EstimateCallCost("", "", 0))
}
