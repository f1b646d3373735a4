package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Update is a noteworthy piece of information captured from a conversation.
type Update struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `json:"conversation_id"`
	Priority       Priority  `json:"priority"`
	Read           bool      `json:"read"`
}

// Updates is the durable important-update collection.
type Updates struct {
	path   string
	items  []Update
	mu     sync.Mutex
	logger *zap.Logger
}

func newUpdates(path string, logger *zap.Logger) *Updates {
	return &Updates{path: path, logger: logger}
}

// Reload re-reads the collection from disk.
func (u *Updates) Reload() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	items := []Update{}
	if err := readJSON(u.path, &items); err != nil {
		return err
	}
	u.items = items
	return nil
}

// Add assigns an ID and persists the update.
func (u *Updates) Add(up Update) (Update, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	up.ID = uuid.New().String()
	if up.CreatedAt.IsZero() {
		up.CreatedAt = time.Now()
	}
	if up.Priority == "" {
		up.Priority = PriorityMedium
	}
	u.items = append(u.items, up)
	if err := writeJSON(u.path, u.items); err != nil {
		u.items = u.items[:len(u.items)-1]
		return Update{}, fmt.Errorf("persist update: %w", err)
	}
	return up, nil
}

// List returns a copy of all updates.
func (u *Updates) List() []Update {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Update, len(u.items))
	copy(out, u.items)
	return out
}

// MarkAllRead flags every update as read and persists.
func (u *Updates) MarkAllRead() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	changed := false
	for i := range u.items {
		if !u.items[i].Read {
			u.items[i].Read = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := writeJSON(u.path, u.items); err != nil {
		return fmt.Errorf("persist updates: %w", err)
	}
	return nil
}

// Clear removes all updates, returning how many there were.
func (u *Updates) Clear() (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	count := len(u.items)
	u.items = nil
	if err := writeJSON(u.path, []Update{}); err != nil {
		return 0, fmt.Errorf("persist updates: %w", err)
	}
	return count, nil
}
