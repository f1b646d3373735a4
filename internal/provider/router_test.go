package provider

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

type stubProvider struct {
	id      string
	content string
	fail    bool
	calls   int
}

func (s *stubProvider) ID() string   { return s.id }
func (s *stubProvider) Name() string { return s.id }

func (s *stubProvider) Chat(_ context.Context, _ *ChatRequest) (*ChatResponse, error) {
	s.calls++
	if s.fail {
		return nil, fmt.Errorf("provider %s down", s.id)
	}
	return &ChatResponse{Content: s.content}, nil
}

func (s *stubProvider) HealthCheck(context.Context) error { return nil }

func TestRouterChatUsesDefault(t *testing.T) {
	r := NewRouter(zap.NewNop())
	a := &stubProvider{id: "a", content: "from-a"}
	b := &stubProvider{id: "b", content: "from-b"}
	r.Register(a)
	r.Register(b)

	resp, err := r.Chat(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "from-a" {
		t.Errorf("content = %q, want from-a", resp.Content)
	}
	if b.calls != 0 {
		t.Errorf("fallback provider called %d times, want 0", b.calls)
	}
}

func TestRouterChatFallsThrough(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&stubProvider{id: "a", fail: true})
	r.Register(&stubProvider{id: "b", content: "from-b"})

	resp, err := r.Chat(context.Background(), &ChatRequest{})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "from-b" {
		t.Errorf("content = %q, want from-b", resp.Content)
	}
}

func TestRouterChatNoProviders(t *testing.T) {
	r := NewRouter(zap.NewNop())
	if _, err := r.Chat(context.Background(), &ChatRequest{}); err == nil {
		t.Error("expected error with no providers")
	}
	if r.Available() {
		t.Error("Available() = true with no providers")
	}
}
