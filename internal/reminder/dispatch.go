package reminder

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sink delivers text to a conversation on one chat platform. Owns reports
// whether a conversation ID belongs to the sink's platform namespace, so a
// sink never receives traffic addressed to another transport.
type Sink interface {
	Name() string
	Owns(conversationID string) bool
	Send(ctx context.Context, conversationID, text string) error
}

// Dispatcher fans a notification out to every registered sink that owns the
// target conversation. Delivery is best effort: a failing sink is logged and
// never affects the other sinks or the caller.
type Dispatcher struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Register adds a sink. Safe to call while dispatches are in flight.
func (d *Dispatcher) Register(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
	d.logger.Info("notification sink registered", zap.String("sink", s.Name()))
}

// Dispatch sends text to the conversation via each owning sink. Returns how
// many sinks accepted the message; zero means the notification was lost and
// the caller may only log that, reminder state has already been settled.
func (d *Dispatcher) Dispatch(ctx context.Context, conversationID, text string) int {
	d.mu.RLock()
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.RUnlock()

	delivered := 0
	for _, s := range sinks {
		if !s.Owns(conversationID) {
			continue
		}
		if err := s.Send(ctx, conversationID, text); err != nil {
			d.logger.Warn("sink delivery failed",
				zap.String("sink", s.Name()),
				zap.String("conversation", conversationID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	if delivered == 0 {
		d.logger.Warn("no sink delivered notification",
			zap.String("conversation", conversationID))
	}
	return delivered
}
