// Package digest builds and delivers the owner's end-of-day summary.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nidhogg/valet/internal/reminder"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// dueWindow is how far ahead the digest looks for upcoming reminders.
const dueWindow = 4 * 24 * time.Hour

// Digest assembles a daily summary from the stores and delivers it to the
// owner conversation at a fixed local hour.
type Digest struct {
	store    *store.Store
	dispatch *reminder.Dispatcher
	owner    string
	hour     int
	logger   *zap.Logger
}

func New(st *store.Store, dispatch *reminder.Dispatcher, owner string, hour int,
	logger *zap.Logger) *Digest {
	if hour < 0 || hour > 23 {
		hour = 21
	}
	return &Digest{
		store:    st,
		dispatch: dispatch,
		owner:    owner,
		hour:     hour,
		logger:   logger,
	}
}

// Run delivers the digest at the configured hour every day until the context
// is cancelled.
func (d *Digest) Run(ctx context.Context) {
	for {
		wait := time.Until(d.nextDelivery(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			d.Deliver(ctx)
		}
	}
}

// nextDelivery is the next occurrence of the configured local hour.
func (d *Digest) nextDelivery(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Deliver builds today's summary and sends it to the owner. Nothing is sent
// when there is nothing to report.
func (d *Digest) Deliver(ctx context.Context) {
	if d.owner == "" {
		return
	}
	text := d.Build(time.Now())
	if text == "" {
		d.logger.Info("daily digest empty, skipping delivery")
		return
	}
	d.dispatch.Dispatch(ctx, d.owner, text)
	d.logger.Info("daily digest delivered")
}

// Build renders the summary for the given day: reminders created today,
// reminders due within the lookahead window, and today's updates and
// memories. Returns "" when every section is empty.
func (d *Digest) Build(now time.Time) string {
	var sections []string

	if s := d.createdToday(now); s != "" {
		sections = append(sections, s)
	}
	if s := d.dueSoon(now); s != "" {
		sections = append(sections, s)
	}
	if s := d.updatesToday(now); s != "" {
		sections = append(sections, s)
	}
	if s := d.memoriesToday(now); s != "" {
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return ""
	}
	return "🌙 Daily summary\n\n" + strings.Join(sections, "\n\n")
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Local().Date()
	y2, m2, d2 := b.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (d *Digest) createdToday(now time.Time) string {
	var lines []string
	for _, rem := range d.store.Reminders.List() {
		if sameDay(rem.CreatedAt, now) {
			lines = append(lines, "- "+rem.Task)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Created today:\n" + strings.Join(lines, "\n")
}

func (d *Digest) dueSoon(now time.Time) string {
	var due []store.Reminder
	for _, rem := range d.store.Reminders.ListActive() {
		if rem.TargetTime == nil {
			continue
		}
		if rem.TargetTime.After(now) && rem.TargetTime.Before(now.Add(dueWindow)) {
			due = append(due, rem)
		}
	}
	if len(due) == 0 {
		return ""
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].TargetTime.Before(*due[j].TargetTime)
	})

	var lines []string
	for _, rem := range due {
		lines = append(lines, fmt.Sprintf("- %s (%s)",
			rem.Task, rem.TargetTime.Local().Format("Mon Jan 2 15:04")))
	}
	return "Due in the next 4 days:\n" + strings.Join(lines, "\n")
}

func (d *Digest) updatesToday(now time.Time) string {
	var lines []string
	for _, up := range d.store.Updates.List() {
		if sameDay(up.CreatedAt, now) {
			lines = append(lines, "- "+up.Content)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Updates:\n" + strings.Join(lines, "\n")
}

func (d *Digest) memoriesToday(now time.Time) string {
	var lines []string
	for _, mem := range d.store.Memories.List() {
		if sameDay(mem.CreatedAt, now) {
			lines = append(lines, "- "+mem.Content)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Saved today:\n" + strings.Join(lines, "\n")
}
