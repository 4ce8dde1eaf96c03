package provider

import "unicode"

// EstimateTokens approximates the token count of text when the backend
// reports none. CJK characters average roughly 1.5 characters per token
// and other text roughly 4.
func EstimateTokens(text string) int64 {
	var han, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
		} else {
			other++
		}
	}
	return int64(float64(han)/1.5 + float64(other)/4.0)
}

// EstimateUsage builds an estimated usage record from the prompt and
// reply text.
func EstimateUsage(prompt, reply string) Usage {
	return Usage{
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(reply),
		Estimated:    true,
	}
}
