package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nidhogg/valet/internal/provider"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// Resolution is the outcome of resolving a natural-language time expression.
// TargetTime is nil when no future time could be derived; Task is always
// usable (it falls back to the original expression).
type Resolution struct {
	Task       string
	TargetTime *time.Time
	Priority   store.Priority
}

// timeLayouts accepted from the model, tried in order. Zoneless layouts are
// interpreted in local time, matching the resolution prompt.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Resolve turns a free-text time expression into an absolute target time.
// The reference "now" is passed explicitly so resolution and scheduling agree
// on the clock. Resolution never fails outward: on provider unavailability or
// malformed output it returns the expression unchanged with a nil target.
func (c *Classifier) Resolve(ctx context.Context, expression string, now time.Time) Resolution {
	fallback := Resolution{Task: expression, Priority: store.PriorityMedium}
	if !c.Available() {
		return fallback
	}

	prompt := fmt.Sprintf(`Calculate target datetime and extract clean task. Return JSON format:

{
  "task": "cleaned task description",
  "targetDateTime": "ISO datetime string or null",
  "priority": "HIGH|MEDIUM|LOW"
}

Rules:
- Current time (UTC): %s
- Current local time: %s
- Extract clean task from original text, removing time references
- Calculate targetDateTime in LOCAL timezone (not UTC)
- If no valid time found, set targetDateTime to null
- Priority: HIGH for urgent/soon, MEDIUM for normal, LOW for far future
- Examples: "tomorrow 3pm" means tomorrow at 15:00 LOCAL TIME, "10am" means today/tomorrow 10:00 LOCAL TIME

Original text: %q

Return only valid JSON:`,
		now.UTC().Format(time.RFC3339),
		now.Local().Format("Monday, 02 Jan 2006 15:04:05 MST"),
		expression)

	resp, err := c.providers.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		c.logger.Warn("time resolution call failed", zap.Error(err))
		return fallback
	}

	var parsed struct {
		Task           string `json:"task"`
		TargetDateTime string `json:"targetDateTime"`
		Priority       string `json:"priority"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &parsed); err != nil {
		c.logger.Warn("time resolution returned unparseable output",
			zap.String("raw", resp.Content), zap.Error(err))
		return fallback
	}

	res := fallback
	if task := strings.TrimSpace(parsed.Task); task != "" {
		res.Task = task
	}
	if p := store.Priority(strings.ToUpper(parsed.Priority)); p == store.PriorityHigh || p == store.PriorityLow {
		res.Priority = p
	}

	target := parseModelTime(parsed.TargetDateTime)
	if target == nil {
		return res
	}
	// A time at or before now is meaningless to schedule.
	if !target.After(now) {
		c.logger.Info("resolved time not in the future, treating as unresolved",
			zap.Time("target", *target), zap.Time("now", now))
		return res
	}
	res.TargetTime = target
	return res
}

func parseModelTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}
