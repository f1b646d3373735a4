package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nidhogg/valet/internal/reminder"
	"go.uber.org/zap"
)

// Gateway manages the platform adapters and routes messages between them
// and the rest of the relay. Outbound messages are addressed by namespaced
// conversation ID; the gateway picks the adapter from the namespace.
type Gateway struct {
	adapters map[string]Adapter
	handler  MessageHandler
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewGateway creates a gateway manager.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// SetHandler sets the callback for all inbound messages. Call before
// Register so no early message is dropped.
func (g *Gateway) SetHandler(h MessageHandler) {
	g.handler = h
}

// Register adds an adapter and wires its message handler.
func (g *Gateway) Register(adapter Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := adapter.Platform()
	g.adapters[platform] = adapter
	adapter.OnMessage(func(msg *InboundMessage) {
		if msg.ConversationID == "" {
			msg.ConversationID = ConversationID(msg.Platform, msg.ChannelID)
		}
		if g.handler != nil {
			g.handler(msg)
		}
	})
	g.logger.Info("registered gateway adapter", zap.String("platform", platform))
}

// ConnectAll starts all registered adapters.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Connect(ctx); err != nil {
			g.logger.Error("adapter connect failed",
				zap.String("platform", platform), zap.Error(err))
			return fmt.Errorf("connect %s: %w", platform, err)
		}
		g.logger.Info("adapter connected", zap.String("platform", platform))
	}
	return nil
}

// Send delivers text to a conversation, resolving the adapter from the
// conversation's platform namespace.
func (g *Gateway) Send(ctx context.Context, conversationID, text string) error {
	platform, channelID := SplitConversationID(conversationID)
	g.mu.RLock()
	adapter, ok := g.adapters[platform]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no adapter for conversation %q", conversationID)
	}
	return adapter.Send(ctx, &OutboundMessage{
		ConversationID: ConversationID(platform, channelID),
		Content:        text,
	})
}

// Reply is Send with thread continuity for platforms that support it.
func (g *Gateway) Reply(ctx context.Context, conversationID, replyTo, text string) error {
	platform, _ := SplitConversationID(conversationID)
	g.mu.RLock()
	adapter, ok := g.adapters[platform]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no adapter for conversation %q", conversationID)
	}
	return adapter.Send(ctx, &OutboundMessage{
		ConversationID: conversationID,
		Content:        text,
		ReplyTo:        replyTo,
	})
}

// Close shuts down all adapters.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}

// Adapters returns the registered platform names.
func (g *Gateway) Adapters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	return names
}

// Statuses reports each adapter's connection state.
func (g *Gateway) Statuses() []AdapterStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]AdapterStatus, 0, len(g.adapters))
	for _, a := range g.adapters {
		out = append(out, a.Status())
	}
	return out
}

// platformSink exposes one platform of the gateway as a notification sink.
type platformSink struct {
	platform string
	gw       *Gateway
}

func (s *platformSink) Name() string { return s.platform }

func (s *platformSink) Owns(conversationID string) bool {
	return strings.HasPrefix(conversationID, s.platform+":")
}

func (s *platformSink) Send(ctx context.Context, conversationID, text string) error {
	return s.gw.Send(ctx, conversationID, text)
}

// Sink returns a notification sink that owns the platform's conversation
// namespace and delivers through the gateway.
func (g *Gateway) Sink(platform string) reminder.Sink {
	return &platformSink{platform: platform, gw: g}
}
