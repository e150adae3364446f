package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""), "never below one")
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
	assert.Equal(t, 3, EstimateTokens(strings.Repeat("あ", 12)), "counts runes, not bytes")
}
