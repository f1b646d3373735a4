package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/nidhogg/valet/internal/reminder"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

func newTestDigest(t *testing.T) (*Digest, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	d := New(st, reminder.NewDispatcher(zap.NewNop()), "test:owner", 21, zap.NewNop())
	return d, st
}

func TestBuildEmptyStore(t *testing.T) {
	d, _ := newTestDigest(t)
	if got := d.Build(time.Now()); got != "" {
		t.Errorf("empty store produced %q", got)
	}
}

func TestBuildSections(t *testing.T) {
	d, st := newTestDigest(t)
	now := time.Now()

	soon := now.Add(24 * time.Hour)
	if _, err := st.Reminders.Create(store.Reminder{
		Task: "dentist", TargetTime: &soon, ConversationID: "test:owner",
	}); err != nil {
		t.Fatal(err)
	}
	later := now.Add(2 * 24 * time.Hour)
	if _, err := st.Reminders.Create(store.Reminder{
		Task: "taxes", TargetTime: &later, ConversationID: "test:owner",
	}); err != nil {
		t.Fatal(err)
	}
	farOut := now.Add(10 * 24 * time.Hour)
	if _, err := st.Reminders.Create(store.Reminder{
		Task: "renew passport", TargetTime: &farOut, ConversationID: "test:owner",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Memories.Add(store.Memory{Content: "likes oat milk"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Updates.Add(store.Update{Content: "package delivered"}); err != nil {
		t.Fatal(err)
	}

	got := d.Build(now)
	for _, want := range []string{"dentist", "taxes", "likes oat milk", "package delivered"} {
		if !strings.Contains(got, want) {
			t.Errorf("digest missing %q:\n%s", want, got)
		}
	}
	// Ten days out is beyond the lookahead, but the reminder was created
	// today so it still shows in the created section only.
	if strings.Count(got, "renew passport") != 1 {
		t.Errorf("far-out reminder listed %d times:\n%s",
			strings.Count(got, "renew passport"), got)
	}
	// Due-soon entries are sorted by target time.
	if strings.Index(got, "dentist (") > strings.Index(got, "taxes (") {
		t.Errorf("due reminders out of order:\n%s", got)
	}
}

func TestNextDelivery(t *testing.T) {
	d, _ := newTestDigest(t)

	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	next := d.nextDelivery(morning)
	if next.Day() != 10 || next.Hour() != 21 {
		t.Errorf("next from morning = %v", next)
	}

	late := time.Date(2026, 3, 10, 22, 0, 0, 0, time.Local)
	next = d.nextDelivery(late)
	if next.Day() != 11 || next.Hour() != 21 {
		t.Errorf("next from late evening = %v", next)
	}
}
