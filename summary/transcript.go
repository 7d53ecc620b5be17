package summary

import (
	"strings"

	"github.com/aeobrien/colloquy/storage"
)

// FormatTranscript renders a session's messages as plain text for the
// summarisation request, one labelled turn per block.
func FormatTranscript(messages []*storage.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(roleLabel(msg.Role))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func roleLabel(role storage.Role) string {
	switch role {
	case storage.RoleAssistant:
		return "Assistant"
	default:
		return "User"
	}
}
