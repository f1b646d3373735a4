package reminder

import (
	"context"
	"time"

	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// DefaultSweepInterval is how often the periodic sweep re-scans the store.
const DefaultSweepInterval = 24 * time.Hour

// Sweep restores scheduling state from the durable store: once at startup
// and then periodically, so reminders survive restarts and long-horizon
// reminders get armed once they come within the timer horizon.
//
// The owns predicate partitions a store shared between two transport
// processes; each process sweeps only the conversations it serves. A nil
// predicate sweeps everything.
type Sweep struct {
	reminders *store.Reminders
	sched     *Scheduler
	owns      func(conversationID string) bool
	interval  time.Duration
	logger    *zap.Logger
}

func NewSweep(reminders *store.Reminders, sched *Scheduler,
	owns func(string) bool, interval time.Duration, logger *zap.Logger) *Sweep {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweep{
		reminders: reminders,
		sched:     sched,
		owns:      owns,
		interval:  interval,
		logger:    logger,
	}
}

// Run performs the startup sweep immediately, then repeats on the interval
// until the context is cancelled.
func (s *Sweep) Run(ctx context.Context) {
	s.Once()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Once()
		}
	}
}

// Once reloads the store and reconciles every active reminder this process
// owns: past-due ones are deactivated in a single batched write, the rest
// are handed back to the scheduler. Re-submitting an already-armed reminder
// is safe because firing re-checks state by ID.
func (s *Sweep) Once() {
	if err := s.reminders.Reload(); err != nil {
		s.logger.Error("sweep could not reload reminders", zap.Error(err))
		return
	}

	now := time.Now()
	var stale []string
	var upcoming []store.Reminder
	for _, rem := range s.reminders.ListActive() {
		if rem.TargetTime == nil {
			continue
		}
		if s.owns != nil && !s.owns(rem.ConversationID) {
			continue
		}
		if !rem.TargetTime.After(now) {
			stale = append(stale, rem.ID)
		} else {
			upcoming = append(upcoming, rem)
		}
	}

	if len(stale) > 0 {
		if err := s.reminders.DeactivateBatch(stale); err != nil {
			s.logger.Error("deactivating past-due reminders failed", zap.Error(err))
		} else {
			s.logger.Info("past-due reminders deactivated", zap.Int("count", len(stale)))
		}
	}
	for _, rem := range upcoming {
		s.sched.Schedule(rem)
	}
	s.logger.Info("reminder sweep complete",
		zap.Int("armed", len(upcoming)), zap.Int("expired", len(stale)))
}
