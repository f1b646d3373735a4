package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store bundles the durable JSON collections kept in one data directory.
// Two processes (one per chat transport) may share the directory; callers
// re-read a collection with its Reload method before any read that could be
// stale relative to the sibling process. Writes replace the whole file.
type Store struct {
	Reminders *Reminders
	Memories  *Memories
	Updates   *Updates
	History   *History
	Contacts  *Contacts

	dir    string
	logger *zap.Logger
}

// New opens (or creates) the data directory and loads all collections.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	s := &Store{dir: dir, logger: logger}
	s.Reminders = newReminders(filepath.Join(dir, "reminders.json"), logger)
	s.Memories = newMemories(filepath.Join(dir, "saved_memories.json"), logger)
	s.Updates = newUpdates(filepath.Join(dir, "important_updates.json"), logger)
	s.History = newHistory(filepath.Join(dir, "chat_history.json"), logger)
	s.Contacts = newContacts(
		filepath.Join(dir, "blocked_contacts.json"),
		filepath.Join(dir, "priority_contacts.json"),
		logger)

	for name, err := range map[string]error{
		"reminders": s.Reminders.Reload(),
		"memories":  s.Memories.Reload(),
		"updates":   s.Updates.Reload(),
		"history":   s.History.Reload(),
		"contacts":  s.Contacts.Reload(),
	} {
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	return s, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string { return s.dir }

// readJSON loads a JSON file into v. A missing or empty file leaves v as-is.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeJSON rewrites the file in full. Written to a temp file in the same
// directory and renamed so a sibling process never observes a torn write.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
