package assembler

// EstimateTokens estimates token count using the ~4 chars/token heuristic,
// rounded up so the budget math stays conservative. Not billing-accurate.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
