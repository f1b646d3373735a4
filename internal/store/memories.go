package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Memory is a saved fact or preference.
type Memory struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `json:"conversation_id"`
	Priority       Priority  `json:"priority"`
	AutoCreated    bool      `json:"auto_created"`
}

// Memories is the durable memory collection.
type Memories struct {
	path   string
	items  []Memory
	mu     sync.Mutex
	logger *zap.Logger
}

func newMemories(path string, logger *zap.Logger) *Memories {
	return &Memories{path: path, logger: logger}
}

// Reload re-reads the collection from disk.
func (m *Memories) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []Memory{}
	if err := readJSON(m.path, &items); err != nil {
		return err
	}
	m.items = items
	return nil
}

// Add assigns an ID and persists the memory.
func (m *Memories) Add(mem Memory) (Memory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem.ID = uuid.New().String()
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}
	if mem.Priority == "" {
		mem.Priority = PriorityMedium
	}
	m.items = append(m.items, mem)
	if err := writeJSON(m.path, m.items); err != nil {
		m.items = m.items[:len(m.items)-1]
		return Memory{}, fmt.Errorf("persist memory: %w", err)
	}
	return mem, nil
}

// List returns a copy of all memories in insertion order.
func (m *Memories) List() []Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Memory, len(m.items))
	copy(out, m.items)
	return out
}

// Recent returns up to n of the most recently added memories.
func (m *Memories) Recent(n int) []Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.items) {
		n = len(m.items)
	}
	out := make([]Memory, n)
	copy(out, m.items[len(m.items)-n:])
	return out
}

// RemoveAt deletes the memory at the given zero-based position, returning it.
// List positions are only meaningful immediately after a Reload+List pair.
func (m *Memories) RemoveAt(i int) (Memory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i < 0 || i >= len(m.items) {
		return Memory{}, fmt.Errorf("memory index %d out of range", i+1)
	}
	removed := m.items[i]
	m.items = append(m.items[:i], m.items[i+1:]...)
	if err := writeJSON(m.path, m.items); err != nil {
		return Memory{}, fmt.Errorf("persist memories: %w", err)
	}
	return removed, nil
}

// Clear removes all memories, returning how many there were.
func (m *Memories) Clear() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.items)
	m.items = nil
	if err := writeJSON(m.path, []Memory{}); err != nil {
		return 0, fmt.Errorf("persist memories: %w", err)
	}
	return count, nil
}
