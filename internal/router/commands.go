package router

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nidhogg/valet/internal/classify"
	"github.com/nidhogg/valet/internal/gateway"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// Deterministic fast paths for the most common commands; everything else
// goes through the language model interpreter.
var (
	cancelReminderRe = regexp.MustCompile(`(?i)^(?:cancel|delete|remove)\s+reminder\b`)
	deleteMemoryRe   = regexp.MustCompile(`(?i)^(?:delete|remove|forget)\s+memory\b`)
	remindRe         = regexp.MustCompile(`(?i)^remind(?:\s+me)?\b`)
	rememberRe       = regexp.MustCompile(`(?i)^remember\s+(.+)$`)
	numberRe         = regexp.MustCompile(`\d+`)
)

// runCommand tries to execute the message as an owner command. Returns false
// when the message is not a command, in which case the caller treats it as
// conversation.
func (r *Router) runCommand(ctx context.Context, msg *gateway.InboundMessage, body string) bool {
	action := r.detectAction(ctx, body)
	if action == "" {
		return false
	}

	switch action {
	case classify.ActionSetReminder:
		r.createReminder(ctx, msg, body, msg.ConversationID, false, "")
	case classify.ActionCancelReminder:
		r.cancelReminder(ctx, msg, body)
	case classify.ActionShowReminders:
		r.refresh("reminders", r.store.Reminders.Reload)
		r.reply(ctx, msg, formatReminders(r.store.Reminders.ListActive()))
	case classify.ActionDeleteAllReminders:
		r.refresh("reminders", r.store.Reminders.Reload)
		n, err := r.store.Reminders.DeactivateAll()
		if err != nil {
			r.logger.Error("deactivate all reminders failed", zap.Error(err))
			r.reply(ctx, msg, "Something went wrong cancelling the reminders.")
			return true
		}
		r.reply(ctx, msg, fmt.Sprintf("Cancelled %d reminder(s).", n))
	case classify.ActionSaveMemory:
		r.saveMemory(ctx, msg, body)
	case classify.ActionShowMemories:
		r.refresh("memories", r.store.Memories.Reload)
		r.reply(ctx, msg, formatMemories(r.store.Memories.List()))
	case classify.ActionDeleteMemory:
		r.deleteMemory(ctx, msg, body)
	case classify.ActionDeleteAllMemories:
		n, err := r.store.Memories.Clear()
		if err != nil {
			r.logger.Error("clear memories failed", zap.Error(err))
			r.reply(ctx, msg, "Something went wrong clearing the memories.")
			return true
		}
		r.reply(ctx, msg, fmt.Sprintf("Deleted %d memorie(s).", n))
	case classify.ActionShowUpdates:
		r.refresh("updates", r.store.Updates.Reload)
		r.reply(ctx, msg, formatUpdates(r.store.Updates.List()))
		if err := r.store.Updates.MarkAllRead(); err != nil {
			r.logger.Warn("marking updates read failed", zap.Error(err))
		}
	case classify.ActionDeleteAllUpdates:
		n, err := r.store.Updates.Clear()
		if err != nil {
			r.logger.Error("clear updates failed", zap.Error(err))
			r.reply(ctx, msg, "Something went wrong clearing the updates.")
			return true
		}
		r.reply(ctx, msg, fmt.Sprintf("Cleared %d update(s).", n))
	case classify.ActionShowBlocked:
		r.refresh("contacts", r.store.Contacts.Reload)
		r.reply(ctx, msg, formatBlocked(r.store.Contacts.Blocked()))
	case classify.ActionShowPriority:
		r.refresh("contacts", r.store.Contacts.Reload)
		r.reply(ctx, msg, formatPriority(r.store.Contacts.PriorityList()))
	case classify.ActionBlockContact:
		r.blockContact(ctx, msg, body)
	case classify.ActionUnblockContact:
		r.unblockContact(ctx, msg, body)
	case classify.ActionAddPriority:
		r.addPriorityContact(ctx, msg, body)
	case classify.ActionRemovePriority:
		r.removePriorityContact(ctx, msg, body)
	default:
		return false
	}
	return true
}

// refresh picks up writes from a sibling process before a read the owner
// acts on. A failed reload falls back to the in-memory view.
func (r *Router) refresh(collection string, reload func() error) {
	if err := reload(); err != nil {
		r.logger.Warn("reload failed, using in-memory state",
			zap.String("collection", collection), zap.Error(err))
	}
}

// detectAction resolves a command to an action, regex fast paths first so
// the common commands work even with no provider configured.
func (r *Router) detectAction(ctx context.Context, body string) classify.Action {
	switch {
	case cancelReminderRe.MatchString(body):
		return classify.ActionCancelReminder
	case deleteMemoryRe.MatchString(body):
		return classify.ActionDeleteMemory
	case remindRe.MatchString(body):
		return classify.ActionSetReminder
	case rememberRe.MatchString(body):
		return classify.ActionSaveMemory
	}
	return r.classifier.Interpret(ctx, body)
}

// createReminder resolves the time expression and arms the reminder. conv is
// the conversation that will receive the alerts.
func (r *Router) createReminder(ctx context.Context, msg *gateway.InboundMessage,
	expression, conv string, autoCreated bool, label string) {

	res := r.classifier.Resolve(ctx, expression, time.Now())
	if res.TargetTime == nil {
		if msg != nil {
			r.reply(ctx, msg, "Could not understand the time. Try something like \"remind me tomorrow at 9am to call mom\".")
		} else {
			r.notifyOwner(ctx, "Could not understand the time in: "+expression)
		}
		return
	}

	rem, err := r.store.Reminders.Create(store.Reminder{
		Task:               res.Task,
		OriginalExpression: expression,
		TargetTime:         res.TargetTime,
		ConversationID:     conv,
		Priority:           res.Priority,
		AutoCreated:        autoCreated,
		Label:              label,
	})
	if err != nil {
		r.logger.Error("reminder create failed", zap.Error(err))
		if msg != nil {
			r.reply(ctx, msg, "Something went wrong saving the reminder.")
		}
		return
	}
	r.sched.Schedule(rem)

	confirmation := fmt.Sprintf("✅ Reminder set for %s: %s",
		rem.TargetTime.Local().Format("Mon Jan 2 15:04"), rem.Task)
	if msg != nil {
		r.reply(ctx, msg, confirmation)
	} else {
		r.notifyOwner(ctx, confirmation)
	}
}

func (r *Router) cancelReminder(ctx context.Context, msg *gateway.InboundMessage, body string) {
	// Indexes must count against the durable state, not a stale view.
	r.refresh("reminders", r.store.Reminders.Reload)
	active := r.store.Reminders.ListActive()
	idx, ok := parseIndex(body, len(active))
	if !ok {
		r.reply(ctx, msg, "Which one? Say e.g. \"cancel reminder 2\".\n\n"+formatReminders(active))
		return
	}
	rem := active[idx]
	if err := r.store.Reminders.Deactivate(rem.ID); err != nil {
		r.logger.Error("cancel reminder failed", zap.String("id", rem.ID), zap.Error(err))
		r.reply(ctx, msg, "Something went wrong cancelling the reminder.")
		return
	}
	r.reply(ctx, msg, "🗑️ Cancelled reminder: "+rem.Task)
}

func (r *Router) saveMemory(ctx context.Context, msg *gateway.InboundMessage, body string) {
	content := body
	if m := rememberRe.FindStringSubmatch(body); m != nil {
		content = strings.TrimSpace(m[1])
	}
	mem, err := r.store.Memories.Add(store.Memory{
		Content:        content,
		ConversationID: msg.ConversationID,
	})
	if err != nil {
		r.logger.Error("memory save failed", zap.Error(err))
		r.reply(ctx, msg, "Something went wrong saving that.")
		return
	}
	r.reply(ctx, msg, "💾 Saved: "+mem.Content)
}

func (r *Router) deleteMemory(ctx context.Context, msg *gateway.InboundMessage, body string) {
	r.refresh("memories", r.store.Memories.Reload)
	memories := r.store.Memories.List()
	idx, ok := parseIndex(body, len(memories))
	if !ok {
		r.reply(ctx, msg, "Which one? Say e.g. \"delete memory 2\".\n\n"+formatMemories(memories))
		return
	}
	removed, err := r.store.Memories.RemoveAt(idx)
	if err != nil {
		r.logger.Error("memory delete failed", zap.Error(err))
		r.reply(ctx, msg, "Something went wrong deleting that.")
		return
	}
	r.reply(ctx, msg, "🗑️ Deleted memory: "+removed.Content)
}

func (r *Router) blockContact(ctx context.Context, msg *gateway.InboundMessage, body string) {
	target := lastToken(body)
	if target == "" {
		r.reply(ctx, msg, "Who? Say e.g. \"block discord:12345\".")
		return
	}
	if err := r.store.Contacts.Block(target, "blocked by owner command", ""); err != nil {
		r.logger.Error("block contact failed", zap.Error(err))
		r.reply(ctx, msg, "Something went wrong blocking that contact.")
		return
	}
	r.reply(ctx, msg, "🚫 Blocked "+target)
}

func (r *Router) unblockContact(ctx context.Context, msg *gateway.InboundMessage, body string) {
	target := lastToken(body)
	r.refresh("contacts", r.store.Contacts.Reload)
	bc, err := r.store.Contacts.Unblock(target)
	if err != nil {
		r.reply(ctx, msg, "That contact is not blocked.")
		return
	}
	r.reply(ctx, msg, "✅ Unblocked "+bc.ConversationID)
}

func (r *Router) addPriorityContact(ctx context.Context, msg *gateway.InboundMessage, body string) {
	target := lastToken(body)
	if target == "" {
		r.reply(ctx, msg, "Who? Say e.g. \"prioritize discord:12345\".")
		return
	}
	err := r.store.Contacts.AddPriority(store.PriorityContact{
		ConversationID: target,
		Priority:       store.PriorityHigh,
	})
	if err != nil {
		r.logger.Error("add priority contact failed", zap.Error(err))
		r.reply(ctx, msg, "Something went wrong adding that contact.")
		return
	}
	r.reply(ctx, msg, "⭐ Added priority contact "+target)
}

func (r *Router) removePriorityContact(ctx context.Context, msg *gateway.InboundMessage, body string) {
	target := lastToken(body)
	r.refresh("contacts", r.store.Contacts.Reload)
	pc, err := r.store.Contacts.RemovePriority(target)
	if err != nil {
		r.reply(ctx, msg, "That contact is not on the priority list.")
		return
	}
	r.reply(ctx, msg, "Removed priority contact "+pc.ConversationID)
}

// parseIndex extracts a 1-based list index from a command and converts it to
// a bounds-checked 0-based index.
func parseIndex(body string, length int) (int, bool) {
	m := numberRe.FindString(body)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 || n > length {
		return 0, false
	}
	return n - 1, true
}

func lastToken(body string) string {
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-1]
}

func formatReminders(reminders []store.Reminder) string {
	if len(reminders) == 0 {
		return "No active reminders."
	}
	var b strings.Builder
	b.WriteString("📋 Active reminders:\n")
	for i, rem := range reminders {
		when := "time not set"
		if rem.TargetTime != nil {
			when = rem.TargetTime.Local().Format("Mon Jan 2 15:04")
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, rem.Task, when)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMemories(memories []store.Memory) string {
	if len(memories) == 0 {
		return "No saved memories."
	}
	var b strings.Builder
	b.WriteString("💾 Saved memories:\n")
	for i, mem := range memories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, mem.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatUpdates(updates []store.Update) string {
	if len(updates) == 0 {
		return "No updates."
	}
	var b strings.Builder
	b.WriteString("📰 Updates:\n")
	for i, up := range updates {
		marker := ""
		if !up.Read {
			marker = " (new)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, up.Content, marker)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatBlocked(blocked []store.BlockedContact) string {
	if len(blocked) == 0 {
		return "No blocked contacts."
	}
	var b strings.Builder
	b.WriteString("🚫 Blocked contacts:\n")
	for i, bc := range blocked {
		fmt.Fprintf(&b, "%d. %s\n", i+1, bc.ConversationID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPriority(contacts []store.PriorityContact) string {
	if len(contacts) == 0 {
		return "No priority contacts."
	}
	var b strings.Builder
	b.WriteString("⭐ Priority contacts:\n")
	for i, pc := range contacts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, pc.ConversationID)
	}
	return strings.TrimRight(b.String(), "\n")
}
