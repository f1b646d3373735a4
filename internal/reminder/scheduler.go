package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// MaxTimerDelay is the longest single-shot delay the scheduler will hand to
// a timer: 2^31-1 milliseconds, about 24.8 days. Reminders further out than
// this are left active with no timer and picked up by the recovery sweep
// once they come within range.
const MaxTimerDelay = time.Duration(1<<31-1) * time.Millisecond

// dispatchTimeout bounds how long a fired timer waits on sink delivery.
const dispatchTimeout = 30 * time.Second

// Scheduler arms delayed notifications for reminders: optional pre-alerts
// before the target time and exactly one final alert at it.
//
// There is no timer cancellation. Every callback re-fetches its reminder by
// ID when it fires and does nothing if the reminder is gone or inactive, so
// cancelling is just deactivating the record and re-arming the same reminder
// twice is harmless.
type Scheduler struct {
	reminders *store.Reminders
	dispatch  *Dispatcher
	logger    *zap.Logger
	offsets   []time.Duration
	maxDelay  time.Duration
}

// NewScheduler builds a scheduler with the standard pre-alert offsets of
// 60 and 30 minutes and the platform timer horizon.
func NewScheduler(reminders *store.Reminders, dispatch *Dispatcher, logger *zap.Logger) *Scheduler {
	return NewSchedulerWithTiming(reminders, dispatch, logger,
		[]time.Duration{60 * time.Minute, 30 * time.Minute}, MaxTimerDelay)
}

// NewSchedulerWithTiming injects the pre-alert offsets and the maximum timer
// delay, which lets tests exercise the windowing and long-horizon paths with
// millisecond timers.
func NewSchedulerWithTiming(reminders *store.Reminders, dispatch *Dispatcher,
	logger *zap.Logger, offsets []time.Duration, maxDelay time.Duration) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		dispatch:  dispatch,
		logger:    logger,
		offsets:   offsets,
		maxDelay:  maxDelay,
	}
}

// Schedule arms the timers for one reminder.
//
// A reminder whose target has already passed is deactivated and persisted.
// Pre-alert timers are armed only for offsets that have not yet elapsed.
// When the remaining delay exceeds the timer horizon nothing is armed at
// all: the reminder stays active and the sweep re-submits it later.
func (s *Scheduler) Schedule(rem store.Reminder) {
	if !rem.Active || rem.TargetTime == nil {
		return
	}
	delay := time.Until(*rem.TargetTime)
	if delay <= 0 {
		s.logger.Info("reminder already past due, deactivating",
			zap.String("id", rem.ID), zap.Timep("target", rem.TargetTime))
		if err := s.reminders.Deactivate(rem.ID); err != nil {
			s.logger.Error("deactivating stale reminder failed",
				zap.String("id", rem.ID), zap.Error(err))
		}
		return
	}

	// Past the horizon nothing is armed, pre-alerts included; the sweep
	// re-submits the whole reminder once it comes within range.
	if delay > s.maxDelay {
		s.logger.Info("reminder beyond timer horizon, deferred to sweep",
			zap.String("id", rem.ID), zap.Duration("delay", delay))
		return
	}

	id := rem.ID
	for _, offset := range s.offsets {
		pre := delay - offset
		if pre <= 0 {
			continue
		}
		off := offset
		time.AfterFunc(pre, func() { s.firePreAlert(id, off) })
	}

	time.AfterFunc(delay, func() { s.fireFinal(id) })
	s.logger.Info("reminder armed",
		zap.String("id", id),
		zap.Duration("delay", delay),
		zap.String("task", rem.Task))
}

// firePreAlert runs when a pre-alert timer elapses. The reminder is looked
// up fresh; a cancelled or already-fired reminder produces nothing.
func (s *Scheduler) firePreAlert(id string, offset time.Duration) {
	rem, ok := s.reminders.FindByID(id)
	if !ok || !rem.Active {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	text := fmt.Sprintf("⏰ Reminder in %s: %s", describeOffset(offset), rem.Task)
	s.dispatch.Dispatch(ctx, rem.ConversationID, text)
}

// fireFinal runs when the final timer elapses. The claim on the store both
// checks Active and flips it in one step, so of any number of timers armed
// for the same reminder exactly one dispatches. Deactivation is persisted
// before delivery is attempted; a lost notification never resurrects the
// reminder.
func (s *Scheduler) fireFinal(id string) {
	rem, ok, err := s.reminders.Complete(id)
	if err != nil {
		s.logger.Error("completing reminder failed, alert withheld",
			zap.String("id", id), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	s.dispatch.Dispatch(ctx, rem.ConversationID, "⏰ Reminder: "+rem.Task)
	s.logger.Info("reminder fired", zap.String("id", id), zap.String("task", rem.Task))
}

func describeOffset(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
