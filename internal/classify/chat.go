package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/valet/internal/provider"
	"github.com/nidhogg/valet/internal/store"
)

const chatSystemPrompt = `You are a helpful personal assistant. Keep responses concise and friendly.`

// Reply generates a conversational answer using recent history and saved
// memories as context. Unlike the structured calls, a failure here surfaces
// as an error so the caller can answer with an apology.
func (c *Classifier) Reply(ctx context.Context, userMessage string,
	history []store.HistoryEntry, memories []store.Memory) (string, error) {

	if !c.Available() {
		return "", fmt.Errorf("no language model provider configured")
	}

	var prompt strings.Builder
	prompt.WriteString(chatSystemPrompt + "\n\n")

	if len(memories) > 0 {
		prompt.WriteString("Relevant memories:\n")
		for _, m := range memories {
			prompt.WriteString("- " + m.Content + "\n")
		}
		prompt.WriteString("\n")
	}
	if len(history) > 0 {
		prompt.WriteString("Recent conversation:\n")
		for _, h := range history {
			fmt.Fprintf(&prompt, "%s: %s\n", h.Role, h.Content)
		}
		prompt.WriteString("\n")
	}
	fmt.Fprintf(&prompt, "User: %s\nAssistant:", userMessage)

	resp, err := c.providers.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: "user", Content: prompt.String()}},
	})
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
