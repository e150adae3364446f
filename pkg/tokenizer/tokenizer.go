package tokenizer

import "unicode/utf8"

// EstimateTokens returns a rough token count for text. English prose runs
// about four characters per token; exact counts would need a model-specific
// tokenizer, which this service deliberately does not carry.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
