package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// recordingSink captures everything dispatched to it.
type recordingSink struct {
	name   string
	prefix string
	fail   bool

	mu   sync.Mutex
	sent []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Owns(conversationID string) bool {
	return strings.HasPrefix(conversationID, s.prefix)
}

func (s *recordingSink) Send(_ context.Context, conversationID, text string) error {
	if s.fail {
		return fmt.Errorf("transport down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

func newTestReminders(t *testing.T) *store.Reminders {
	t.Helper()
	st, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st.Reminders
}

func newTestScheduler(t *testing.T, rs *store.Reminders, offsets []time.Duration,
	maxDelay time.Duration) (*Scheduler, *recordingSink) {
	t.Helper()
	sink := &recordingSink{name: "test", prefix: "test:"}
	d := NewDispatcher(zap.NewNop())
	d.Register(sink)
	return NewSchedulerWithTiming(rs, d, zap.NewNop(), offsets, maxDelay), sink
}

func createAt(t *testing.T, rs *store.Reminders, task string, target time.Time) store.Reminder {
	t.Helper()
	rem, err := rs.Create(store.Reminder{
		Task:           task,
		TargetTime:     &target,
		ConversationID: "test:chan",
	})
	if err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	return rem
}

// A short target with both pre-alert offsets already elapsed produces the
// final alert only, and the reminder ends up inactive.
func TestScheduleFinalOnly(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs,
		[]time.Duration{600 * time.Millisecond, 300 * time.Millisecond}, MaxTimerDelay)

	rem := createAt(t, rs, "call mom", time.Now().Add(100*time.Millisecond))
	sched.Schedule(rem)
	time.Sleep(400 * time.Millisecond)

	msgs := sink.messages()
	if len(msgs) != 1 {
		t.Fatalf("dispatched %d messages, want 1: %v", len(msgs), msgs)
	}
	if msgs[0] != "⏰ Reminder: call mom" {
		t.Errorf("final alert = %q", msgs[0])
	}
	got, _ := rs.FindByID(rem.ID)
	if got.Active {
		t.Error("reminder still active after final fire")
	}
}

// With the target between the two offsets only the nearer pre-alert arms,
// never one whose moment has already passed.
func TestScheduleWindowsPreAlerts(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs,
		[]time.Duration{300 * time.Millisecond, 150 * time.Millisecond}, MaxTimerDelay)

	rem := createAt(t, rs, "standup", time.Now().Add(220*time.Millisecond))
	sched.Schedule(rem)
	time.Sleep(600 * time.Millisecond)

	msgs := sink.messages()
	if len(msgs) != 2 {
		t.Fatalf("dispatched %d messages, want pre-alert and final: %v", len(msgs), msgs)
	}
	if !strings.HasPrefix(msgs[0], "⏰ Reminder in ") {
		t.Errorf("first message is not a pre-alert: %q", msgs[0])
	}
	if msgs[1] != "⏰ Reminder: standup" {
		t.Errorf("second message is not the final alert: %q", msgs[1])
	}
}

// A target far enough out for both offsets yields both pre-alerts and the
// final alert, in order.
func TestScheduleAllStages(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs,
		[]time.Duration{200 * time.Millisecond, 100 * time.Millisecond}, MaxTimerDelay)

	rem := createAt(t, rs, "board meeting", time.Now().Add(350*time.Millisecond))
	sched.Schedule(rem)
	time.Sleep(700 * time.Millisecond)

	msgs := sink.messages()
	if len(msgs) != 3 {
		t.Fatalf("dispatched %d messages, want 3: %v", len(msgs), msgs)
	}
	if msgs[2] != "⏰ Reminder: board meeting" {
		t.Errorf("last message = %q, want final alert last", msgs[2])
	}
}

func TestSchedulePastDueDeactivates(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs, nil, MaxTimerDelay)

	rem := createAt(t, rs, "expired", time.Now().Add(-time.Minute))
	sched.Schedule(rem)
	time.Sleep(100 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 0 {
		t.Errorf("stale reminder dispatched %v", msgs)
	}
	got, _ := rs.FindByID(rem.ID)
	if got.Active {
		t.Error("stale reminder left active")
	}
}

// Beyond the timer horizon nothing is armed; the reminder stays active for
// the sweep to pick up.
func TestScheduleBeyondHorizonDefers(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs,
		[]time.Duration{50 * time.Millisecond}, 100*time.Millisecond)

	rem := createAt(t, rs, "far future", time.Now().Add(250*time.Millisecond))
	sched.Schedule(rem)
	time.Sleep(500 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 0 {
		t.Errorf("deferred reminder dispatched %v", msgs)
	}
	got, _ := rs.FindByID(rem.ID)
	if !got.Active {
		t.Error("deferred reminder was deactivated")
	}
}

// A target just past the horizon must not leak a pre-alert either, even
// when the pre-alert moment itself falls within timer range. Only the
// sweep's re-submission arms anything.
func TestScheduleBeyondHorizonArmsNoPreAlerts(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs,
		[]time.Duration{200 * time.Millisecond}, 150*time.Millisecond)

	rem := createAt(t, rs, "deferred errand", time.Now().Add(250*time.Millisecond))
	sched.Schedule(rem)
	time.Sleep(150 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 0 {
		t.Fatalf("deferred reminder dispatched %v before re-submission", msgs)
	}

	sw := NewSweep(rs, sched, nil, DefaultSweepInterval, zap.NewNop())
	sw.Once()
	time.Sleep(300 * time.Millisecond)

	msgs := sink.messages()
	if len(msgs) != 1 {
		t.Fatalf("dispatched %d messages, want exactly the final alert: %v", len(msgs), msgs)
	}
	if msgs[0] != "⏰ Reminder: deferred errand" {
		t.Errorf("dispatched %q, want the final alert", msgs[0])
	}
}

// Arming the same reminder twice, as overlapping sweeps can, still yields a
// single final alert.
func TestScheduleDoubleArmFiresOnce(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs, nil, MaxTimerDelay)

	rem := createAt(t, rs, "once only", time.Now().Add(100*time.Millisecond))
	sched.Schedule(rem)
	sched.Schedule(rem)
	time.Sleep(400 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 1 {
		t.Fatalf("dispatched %d messages, want exactly 1: %v", len(msgs), msgs)
	}
}

// Cancelling after arming suppresses both the pre-alert and the final alert;
// the timers still fire but find the reminder inactive.
func TestScheduleCancelledReminderStaysSilent(t *testing.T) {
	rs := newTestReminders(t)
	sched, sink := newTestScheduler(t, rs,
		[]time.Duration{100 * time.Millisecond}, MaxTimerDelay)

	rem := createAt(t, rs, "cancelled", time.Now().Add(200*time.Millisecond))
	sched.Schedule(rem)
	if err := rs.Deactivate(rem.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	time.Sleep(500 * time.Millisecond)

	if msgs := sink.messages(); len(msgs) != 0 {
		t.Errorf("cancelled reminder dispatched %v", msgs)
	}
	got, _ := rs.FindByID(rem.ID)
	if got.Active {
		t.Error("cancelled reminder re-activated")
	}
}

func TestDescribeOffset(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{30 * time.Minute, "30 minutes"},
		{90 * time.Second, "1m30s"},
	}
	for _, tc := range cases {
		if got := describeOffset(tc.d); got != tc.want {
			t.Errorf("describeOffset(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
