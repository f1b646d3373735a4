package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Priority classifies how urgent an item is. Informational only: it never
// affects scheduling.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Reminder is the central scheduled entity. TargetTime is nil while the time
// expression is unresolved. Active stays true until the final alert fires or
// the reminder is cancelled; an inactive reminder must never cause a
// notification, which timer callbacks enforce by re-fetching by ID.
type Reminder struct {
	ID                 string     `json:"id"`
	Task               string     `json:"task"`
	CreatedAt          time.Time  `json:"created_at"`
	OriginalExpression string     `json:"original_expression"`
	TargetTime         *time.Time `json:"target_time,omitempty"`
	ConversationID     string     `json:"conversation_id"`
	Active             bool       `json:"active"`
	Priority           Priority   `json:"priority"`
	AutoCreated        bool       `json:"auto_created"`
	Label              string     `json:"label,omitempty"`
}

// Reminders is the durable reminder collection. Every mutation rewrites the
// backing file before returning; a failed write is the operation's failure.
type Reminders struct {
	path   string
	items  []Reminder
	mu     sync.Mutex
	logger *zap.Logger
}

func newReminders(path string, logger *zap.Logger) *Reminders {
	return &Reminders{path: path, logger: logger}
}

// Reload re-reads the collection from disk, discarding in-memory state.
// Used at startup and for read-repair against a sibling process.
func (r *Reminders) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []Reminder{}
	if err := readJSON(r.path, &items); err != nil {
		return err
	}
	r.items = items
	return nil
}

// Create assigns a fresh ID and persists the reminder. IDs are UUIDs so two
// creations in the same millisecond still get distinct identities.
func (r *Reminders) Create(rem Reminder) (Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem.ID = uuid.New().String()
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now()
	}
	if rem.Priority == "" {
		rem.Priority = PriorityMedium
	}
	rem.Active = true

	r.items = append(r.items, rem)
	if err := writeJSON(r.path, r.items); err != nil {
		r.items = r.items[:len(r.items)-1]
		return Reminder{}, fmt.Errorf("persist reminder: %w", err)
	}
	return rem, nil
}

// FindByID returns a copy of the reminder with the given ID.
func (r *Reminders) FindByID(id string) (Reminder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rem := range r.items {
		if rem.ID == id {
			return rem, true
		}
	}
	return Reminder{}, false
}

// List returns a copy of every reminder, active or not.
func (r *Reminders) List() []Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reminder, len(r.items))
	copy(out, r.items)
	return out
}

// ListActive returns copies of all active reminders.
func (r *Reminders) ListActive() []Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Reminder
	for _, rem := range r.items {
		if rem.Active {
			out = append(out, rem)
		}
	}
	return out
}

// Deactivate marks one reminder inactive and persists.
func (r *Reminders) Deactivate(id string) error {
	return r.deactivateIDs(map[string]bool{id: true})
}

// DeactivateBatch marks several reminders inactive with a single persist.
// Used by the recovery sweep for past-due reminders.
func (r *Reminders) DeactivateBatch(ids []string) error {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return r.deactivateIDs(set)
}

func (r *Reminders) deactivateIDs(ids map[string]bool) error {
	if len(ids) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for i := range r.items {
		if ids[r.items[i].ID] && r.items[i].Active {
			r.items[i].Active = false
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := writeJSON(r.path, r.items); err != nil {
		return fmt.Errorf("persist reminders: %w", err)
	}
	return nil
}

// Complete atomically deactivates an active reminder, persists, and returns
// the reminder as it stood. ok is false when the reminder is missing or was
// already inactive; a duplicate timer fire therefore becomes a no-op without
// the callers coordinating. On a failed persist the reminder stays active and
// the caller must not treat the fire as delivered.
func (r *Reminders) Complete(id string) (Reminder, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		if !r.items[i].Active {
			return Reminder{}, false, nil
		}
		r.items[i].Active = false
		if err := writeJSON(r.path, r.items); err != nil {
			r.items[i].Active = true
			return Reminder{}, false, fmt.Errorf("persist reminders: %w", err)
		}
		return r.items[i], true, nil
	}
	return Reminder{}, false, nil
}

// DeactivateAll cancels every active reminder, returning how many.
func (r *Reminders) DeactivateAll() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := range r.items {
		if r.items[i].Active {
			r.items[i].Active = false
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	if err := writeJSON(r.path, r.items); err != nil {
		return 0, fmt.Errorf("persist reminders: %w", err)
	}
	return count, nil
}

// Remove deletes a reminder entirely.
func (r *Reminders) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			if err := writeJSON(r.path, r.items); err != nil {
				return fmt.Errorf("persist reminders: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("reminder %s not found", id)
}
