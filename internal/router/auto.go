package router

import (
	"context"
	"fmt"

	"github.com/nidhogg/valet/internal/classify"
	"github.com/nidhogg/valet/internal/gateway"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// autoCategorize classifies a screened third-party message and files it as a
// reminder, memory or update. forceCategory comes from a contact rule and
// wins over the model's category.
func (r *Router) autoCategorize(ctx context.Context, msg *gateway.InboundMessage,
	body, forceCategory string, contactPriority store.Priority) {

	cat := r.classifier.Categorize(ctx, body)
	if forceCategory != "" {
		if cat == nil {
			cat = &classify.Categorization{Priority: store.PriorityMedium}
		}
		cat.Type = forceCategory
		if cat.Content == "" {
			cat.Content = body
		}
	}
	if cat == nil {
		r.logger.Debug("message not categorized",
			zap.String("conversation", msg.ConversationID))
		return
	}
	if contactPriority == store.PriorityHigh {
		cat.Priority = store.PriorityHigh
	}

	sender := r.senderLabel(msg)
	switch cat.Type {
	case "REMINDER", "SCHEDULE":
		if !r.autoCreate {
			r.notifyOwner(ctx, fmt.Sprintf("🗓️ From %s (possible %s): %s",
				sender, cat.Type, cat.Content))
			return
		}
		expression := cat.Content
		if cat.Datetime != "" {
			expression = cat.Content + " " + cat.Datetime
		}
		// Alerts for auto-created reminders go to the owner, not back to
		// the contact who triggered them.
		r.createReminder(ctx, nil, expression, r.primaryOwner(), true, sender)

	case "MEMORY":
		if _, err := r.store.Memories.Add(store.Memory{
			Content:        cat.Content,
			ConversationID: msg.ConversationID,
			Priority:       cat.Priority,
			AutoCreated:    true,
		}); err != nil {
			r.logger.Error("auto memory save failed", zap.Error(err))
		}

	default:
		if _, err := r.store.Updates.Add(store.Update{
			Content:        fmt.Sprintf("[%s] %s", sender, cat.Content),
			ConversationID: msg.ConversationID,
			Priority:       cat.Priority,
		}); err != nil {
			r.logger.Error("update save failed", zap.Error(err))
			return
		}
		if cat.Priority == store.PriorityHigh {
			r.notifyOwner(ctx, fmt.Sprintf("❗ Important from %s:\n%s", sender, cat.Content))
		}
	}
}
