package gateway

import (
	"context"
	"strings"
	"time"
)

// Adapter is a connection to one chat platform.
type Adapter interface {
	Platform() string
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg *OutboundMessage) error
	OnMessage(handler MessageHandler)
	Close() error
	Status() AdapterStatus
}

// MessageHandler processes inbound messages from any platform.
type MessageHandler func(msg *InboundMessage)

// InboundMessage is a normalized message from any platform. ConversationID
// is the platform-namespaced identity used everywhere outside the adapters.
type InboundMessage struct {
	Platform       string    `json:"platform"`
	ChannelID      string    `json:"channel_id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	ReplyTo        string    `json:"reply_to,omitempty"`
}

// OutboundMessage is a message addressed to a conversation.
type OutboundMessage struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	ReplyTo        string `json:"reply_to,omitempty"`
}

// AdapterStatus is a snapshot of one adapter's connection state.
type AdapterStatus struct {
	Platform    string     `json:"platform"`
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Details     string     `json:"details,omitempty"`
}

// ConversationID builds the namespaced conversation identity for a platform
// channel, e.g. "discord:1234". The namespace is what lets two processes
// share one store and each act only on its own conversations.
func ConversationID(platform, channelID string) string {
	return platform + ":" + channelID
}

// SplitConversationID returns the platform namespace and the raw channel ID.
func SplitConversationID(conversationID string) (platform, channelID string) {
	if i := strings.IndexByte(conversationID, ':'); i >= 0 {
		return conversationID[:i], conversationID[i+1:]
	}
	return "", conversationID
}
