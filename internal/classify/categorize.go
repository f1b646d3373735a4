package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nidhogg/valet/internal/provider"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// Categorization is the model's classification of an inbound message.
// Datetime carries the time reference exactly as written, for the resolver.
type Categorization struct {
	Type     string
	Priority store.Priority
	Content  string
	Datetime string
}

// categoryHints describes the well-known categories to the model. Categories
// outside this map are listed without a hint.
var categoryHints = map[string]string{
	"REMINDER":  "contains time/date references, tasks to do",
	"MEMORY":    "personal info, preferences, facts to remember",
	"IMPORTANT": "urgent info, updates, news",
	"SCHEDULE":  "calendar events, appointments, meetings",
}

// Categorize classifies a message into one of the configured categories.
// Returns nil when the message fits none of them, the provider is not
// configured, or the output cannot be parsed.
func (c *Classifier) Categorize(ctx context.Context, body string) *Categorization {
	if !c.Available() || len(c.categories) == 0 {
		return nil
	}

	var rules strings.Builder
	for _, cat := range c.categories {
		if hint, ok := categoryHints[cat]; ok {
			fmt.Fprintf(&rules, "- %s: %s\n", cat, hint)
		} else {
			fmt.Fprintf(&rules, "- %s\n", cat)
		}
	}

	prompt := fmt.Sprintf(`Analyze this message and categorize it. Return JSON format:

{
  "type": "%s|NONE",
  "priority": "HIGH|MEDIUM|LOW",
  "content": "briefly summarised extracted content, easy to read",
  "datetime": "exact date/time as mentioned in message, null if no date/time"
}

Rules:
%s- HIGH priority: urgent, time-sensitive, emergency
- MEDIUM priority: important but not urgent
- LOW priority: general info
- For datetime: extract EXACTLY as written (e.g. "tomorrow at 3pm", "10am")

Message: %q

Return only valid JSON:`, strings.Join(c.categories, "|"), rules.String(), body)

	resp, err := c.providers.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		c.logger.Warn("categorization call failed", zap.Error(err))
		return nil
	}

	var parsed struct {
		Type     string `json:"type"`
		Priority string `json:"priority"`
		Content  string `json:"content"`
		Datetime string `json:"datetime"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &parsed); err != nil {
		c.logger.Warn("categorization returned unparseable output",
			zap.String("raw", resp.Content), zap.Error(err))
		return nil
	}

	catType := strings.ToUpper(strings.TrimSpace(parsed.Type))
	if catType == "" || catType == "NONE" || !c.knownCategory(catType) {
		return nil
	}

	prio := store.Priority(strings.ToUpper(parsed.Priority))
	if prio != store.PriorityHigh && prio != store.PriorityLow {
		prio = store.PriorityMedium
	}
	content := strings.TrimSpace(parsed.Content)
	if content == "" {
		content = body
	}
	datetime := strings.TrimSpace(parsed.Datetime)
	if strings.EqualFold(datetime, "null") {
		datetime = ""
	}

	return &Categorization{
		Type:     catType,
		Priority: prio,
		Content:  content,
		Datetime: datetime,
	}
}

func (c *Classifier) knownCategory(t string) bool {
	for _, cat := range c.categories {
		if cat == t {
			return true
		}
	}
	return false
}
