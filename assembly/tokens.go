package assembly

// EstimateTokens approximates the token count of text. Roughly four
// characters per token, rounded up. Deterministic and cheap; good enough
// for ordering and truncation decisions, not for billing.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// EstimateMessages sums the token estimates of a batch of messages.
func EstimateMessages(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
