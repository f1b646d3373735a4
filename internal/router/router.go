// Package router is the inbound message pipeline: contact screening,
// owner-command handling, auto-categorization and the chat fallback.
package router

import (
	"context"
	"strings"

	"github.com/nidhogg/valet/internal/classify"
	"github.com/nidhogg/valet/internal/gateway"
	"github.com/nidhogg/valet/internal/reminder"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

// Router wires one inbound message through screening, commands,
// classification and replies.
type Router struct {
	store      *store.Store
	classifier *classify.Classifier
	sched      *reminder.Scheduler
	dispatch   *reminder.Dispatcher
	gw         *gateway.Gateway
	owners     []string
	autoCreate bool
	logger     *zap.Logger
}

// New creates a router. owners lists the conversation IDs that belong to the
// operator; the first one receives forwarded notifications. autoCreate
// enables creating reminders from categorized third-party messages.
func New(st *store.Store, cl *classify.Classifier, sched *reminder.Scheduler,
	dispatch *reminder.Dispatcher, gw *gateway.Gateway,
	owners []string, autoCreate bool, logger *zap.Logger) *Router {
	return &Router{
		store:      st,
		classifier: cl,
		sched:      sched,
		dispatch:   dispatch,
		gw:         gw,
		owners:     owners,
		autoCreate: autoCreate,
		logger:     logger,
	}
}

// Handler returns the gateway message handler. Each message is processed on
// its own goroutine because classification calls can take seconds and must
// not stall the platform event loops.
func (r *Router) Handler() gateway.MessageHandler {
	return func(msg *gateway.InboundMessage) {
		go r.Handle(context.Background(), msg)
	}
}

// Handle runs the pipeline for one message.
func (r *Router) Handle(ctx context.Context, msg *gateway.InboundMessage) {
	body := strings.TrimSpace(msg.Content)
	if body == "" {
		return
	}

	if r.isOwner(msg.ConversationID) {
		r.handleOwner(ctx, msg, body)
		return
	}
	r.handleContact(ctx, msg, body)
}

func (r *Router) isOwner(conversationID string) bool {
	for _, o := range r.owners {
		if o == conversationID {
			return true
		}
	}
	return false
}

// primaryOwner is where forwarded notifications and auto-created items go.
func (r *Router) primaryOwner() string {
	if len(r.owners) == 0 {
		return ""
	}
	return r.owners[0]
}

// handleContact screens a third-party message and, when it passes, feeds it
// to auto-categorization. Contacts never get conversational replies.
func (r *Router) handleContact(ctx context.Context, msg *gateway.InboundMessage, body string) {
	screening := r.store.Contacts.Screen(msg.ConversationID, r.owners)
	if !screening.Process {
		r.logger.Debug("message dropped by screening",
			zap.String("conversation", msg.ConversationID),
			zap.String("reason", screening.Reason))
		return
	}

	result := store.ApplyRules(body, screening.Rules)
	if !result.Process {
		r.logger.Debug("message dropped by contact rules",
			zap.String("conversation", msg.ConversationID))
		return
	}
	if result.NotifyOnly {
		r.notifyOwner(ctx, "📨 Message from "+r.senderLabel(msg)+":\n"+body)
		return
	}

	r.autoCategorize(ctx, msg, body, result.ForceCategory, screening.Priority)
}

// notifyOwner pushes text to the operator's primary conversation.
func (r *Router) notifyOwner(ctx context.Context, text string) {
	owner := r.primaryOwner()
	if owner == "" {
		r.logger.Warn("no owner conversation configured, notification dropped")
		return
	}
	r.dispatch.Dispatch(ctx, owner, text)
}

func (r *Router) senderLabel(msg *gateway.InboundMessage) string {
	if msg.UserName != "" {
		return msg.UserName
	}
	return msg.ConversationID
}

// reply answers the message's own conversation, threading when possible.
func (r *Router) reply(ctx context.Context, msg *gateway.InboundMessage, text string) {
	if err := r.gw.Reply(ctx, msg.ConversationID, msg.ReplyTo, text); err != nil {
		r.logger.Warn("reply failed",
			zap.String("conversation", msg.ConversationID), zap.Error(err))
	}
}

// handleOwner processes a message from the operator: try command handling
// first, fall back to conversation.
func (r *Router) handleOwner(ctx context.Context, msg *gateway.InboundMessage, body string) {
	r.appendHistory(msg.ConversationID, "user", body)

	if handled := r.runCommand(ctx, msg, body); handled {
		return
	}

	answer, err := r.classifier.Reply(ctx, body,
		r.store.History.Recent(msg.ConversationID, 10), r.store.Memories.List())
	if err != nil {
		r.logger.Warn("chat reply failed", zap.Error(err))
		answer = "Sorry, I can't answer right now."
	}
	r.appendHistory(msg.ConversationID, "assistant", answer)
	r.reply(ctx, msg, answer)
}

func (r *Router) appendHistory(conversationID, role, content string) {
	if err := r.store.History.Append(conversationID, role, content); err != nil {
		r.logger.Warn("history append failed", zap.Error(err))
	}
}
