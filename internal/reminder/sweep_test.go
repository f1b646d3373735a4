package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

func TestSweepDeactivatesPastDue(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs, nil, MaxTimerDelay)

	past := createAt(t, rs, "missed", time.Now().Add(-time.Hour))
	future := createAt(t, rs, "upcoming", time.Now().Add(150*time.Millisecond))

	sw := NewSweep(rs, sched, nil, 0, zap.NewNop())
	sw.Once()
	time.Sleep(400 * time.Millisecond)

	got, _ := rs.FindByID(past.ID)
	if got.Active {
		t.Error("past-due reminder still active after sweep")
	}
	msgs := sink.messages()
	if len(msgs) != 1 || msgs[0] != "⏰ Reminder: upcoming" {
		t.Errorf("dispatched %v, want only the upcoming reminder", msgs)
	}
	got, _ = rs.FindByID(future.ID)
	if got.Active {
		t.Error("fired reminder still active")
	}
}

// A reminder deferred past the timer horizon at creation gets armed by a
// later sweep once its remaining delay fits, and fires exactly once.
func TestSweepArmsLongHorizonReminder(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs, nil, 100*time.Millisecond)

	rem := createAt(t, rs, "someday", time.Now().Add(250*time.Millisecond))
	sched.Schedule(rem)
	if msgs := sink.messages(); len(msgs) != 0 {
		t.Fatalf("premature dispatch: %v", msgs)
	}

	time.Sleep(200 * time.Millisecond)
	sw := NewSweep(rs, sched, nil, 0, zap.NewNop())
	sw.Once()
	time.Sleep(300 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 1 {
		t.Fatalf("dispatched %d messages, want 1: %v", len(msgs), msgs)
	}
	got, _ := rs.FindByID(rem.ID)
	if got.Active {
		t.Error("reminder still active after firing")
	}
}

// Overlapping sweeps double-arm the same reminder; the fire-time claim keeps
// the alert single.
func TestSweepRearmIsIdempotent(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs, nil, MaxTimerDelay)

	createAt(t, rs, "only once", time.Now().Add(150*time.Millisecond))
	sw := NewSweep(rs, sched, nil, 0, zap.NewNop())
	sw.Once()
	sw.Once()
	time.Sleep(400 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 1 {
		t.Fatalf("dispatched %d messages, want 1: %v", len(msgs), msgs)
	}
}

func TestSweepHonorsOwningTransport(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs, nil, MaxTimerDelay)

	mine, err := rs.Create(store.Reminder{
		Task: "mine", ConversationID: "test:1",
		TargetTime: timePtr(time.Now().Add(100 * time.Millisecond)),
	})
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := rs.Create(store.Reminder{
		Task: "theirs", ConversationID: "other:1",
		TargetTime: timePtr(time.Now().Add(-time.Hour)),
	})
	if err != nil {
		t.Fatal(err)
	}

	owns := func(conv string) bool { return strings.HasPrefix(conv, "test:") }
	sw := NewSweep(rs, sched, owns, 0, zap.NewNop())
	sw.Once()
	time.Sleep(300 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 1 {
		t.Fatalf("dispatched %v, want only the owned reminder", msgs)
	}
	got, _ := rs.FindByID(theirs.ID)
	if !got.Active {
		t.Error("foreign past-due reminder was deactivated by this process")
	}
	got, _ = rs.FindByID(mine.ID)
	if got.Active {
		t.Error("owned reminder did not fire")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
