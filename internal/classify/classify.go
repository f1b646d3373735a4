// Package classify wraps the hosted language model behind the small set of
// classification capabilities the relay needs: resolving time expressions,
// categorizing inbound messages, interpreting owner commands and generating
// chat replies. Provider output is untrusted text; every structured call
// strips wrappers before parsing and degrades to a safe fallback.
package classify

import (
	"strings"

	"github.com/nidhogg/valet/internal/provider"
	"go.uber.org/zap"
)

// Classifier issues classification calls through the provider router.
type Classifier struct {
	providers  *provider.Router
	categories []string
	logger     *zap.Logger
}

// New creates a classifier. categories is the taxonomy the categorizer may
// use; the scheduling core never depends on it.
func New(providers *provider.Router, categories []string, logger *zap.Logger) *Classifier {
	return &Classifier{
		providers:  providers,
		categories: categories,
		logger:     logger,
	}
}

// Available reports whether a provider is configured.
func (c *Classifier) Available() bool {
	return c.providers != nil && c.providers.Available()
}

// Categories returns the configured taxonomy.
func (c *Classifier) Categories() []string { return c.categories }

// stripFences removes markdown code fences and surrounding noise that
// models wrap around JSON payloads.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	// Some models prepend prose; cut to the outermost JSON object.
	if start := strings.Index(s, "{"); start > 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
