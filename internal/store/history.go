package store

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// historyCap bounds the retained turns per conversation.
const historyCap = 20

// HistoryEntry is one turn of a conversation.
type HistoryEntry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// History keeps a capped per-conversation message log used as chat context.
type History struct {
	path   string
	turns  map[string][]HistoryEntry
	mu     sync.Mutex
	logger *zap.Logger
}

func newHistory(path string, logger *zap.Logger) *History {
	return &History{path: path, turns: make(map[string][]HistoryEntry), logger: logger}
}

// Reload re-reads the log from disk.
func (h *History) Reload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := make(map[string][]HistoryEntry)
	if err := readJSON(h.path, &turns); err != nil {
		return err
	}
	h.turns = turns
	return nil
}

// Append records one turn, trimming the conversation to the cap, and persists.
func (h *History) Append(conversationID, role, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.turns[conversationID], HistoryEntry{
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
	if len(entries) > historyCap {
		entries = entries[len(entries)-historyCap:]
	}
	h.turns[conversationID] = entries

	if err := writeJSON(h.path, h.turns); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// Recent returns up to n most recent turns for a conversation.
func (h *History) Recent(conversationID string, n int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.turns[conversationID]
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]HistoryEntry, n)
	copy(out, entries[len(entries)-n:])
	return out
}

// Len returns the number of retained turns for a conversation.
func (h *History) Len(conversationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns[conversationID])
}
