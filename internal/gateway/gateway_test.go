package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// fakeAdapter records outbound messages for one platform.
type fakeAdapter struct {
	platform string
	handler  MessageHandler
	sent     []*OutboundMessage
}

func (f *fakeAdapter) Platform() string                  { return f.platform }
func (f *fakeAdapter) Connect(context.Context) error     { return nil }
func (f *fakeAdapter) OnMessage(h MessageHandler)        { f.handler = h }
func (f *fakeAdapter) Close() error                      { return nil }
func (f *fakeAdapter) Status() AdapterStatus             { return AdapterStatus{Platform: f.platform} }
func (f *fakeAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	f.sent = append(f.sent, msg)
	return nil
}

func TestConversationIDRoundTrip(t *testing.T) {
	id := ConversationID("discord", "123:456")
	platform, channel := SplitConversationID(id)
	if platform != "discord" || channel != "123:456" {
		t.Errorf("split %q = (%q, %q)", id, platform, channel)
	}
	if p, c := SplitConversationID("bare"); p != "" || c != "bare" {
		t.Errorf("split bare = (%q, %q)", p, c)
	}
}

func TestGatewayRoutesByNamespace(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	discord := &fakeAdapter{platform: "discord"}
	slack := &fakeAdapter{platform: "slack"}
	gw.Register(discord)
	gw.Register(slack)

	if err := gw.Send(context.Background(), "slack:C42", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(slack.sent) != 1 || len(discord.sent) != 0 {
		t.Errorf("slack got %d, discord got %d", len(slack.sent), len(discord.sent))
	}
	if slack.sent[0].ConversationID != "slack:C42" {
		t.Errorf("conversation = %q", slack.sent[0].ConversationID)
	}

	if err := gw.Send(context.Background(), "telegram:1", "lost"); err == nil {
		t.Error("expected error for unregistered platform")
	}
}

func TestGatewayFillsConversationID(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	var got *InboundMessage
	gw.SetHandler(func(msg *InboundMessage) { got = msg })

	a := &fakeAdapter{platform: "discord"}
	gw.Register(a)
	a.handler(&InboundMessage{Platform: "discord", ChannelID: "77", Content: "hello"})

	if got == nil {
		t.Fatal("handler not invoked")
	}
	if got.ConversationID != "discord:77" {
		t.Errorf("conversation = %q", got.ConversationID)
	}
}

func TestSinkOwnsOnlyItsNamespace(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	a := &fakeAdapter{platform: "discord"}
	gw.Register(a)

	sink := gw.Sink("discord")
	if !sink.Owns("discord:1") {
		t.Error("sink should own its namespace")
	}
	if sink.Owns("slack:1") || sink.Owns("discordx:1") {
		t.Error("sink owns a foreign namespace")
	}
	if err := sink.Send(context.Background(), "discord:1", "ping"); err != nil {
		t.Fatalf("sink send: %v", err)
	}
	if len(a.sent) != 1 {
		t.Errorf("adapter got %d messages", len(a.sent))
	}
}

func TestRESTAdapterRoundTrip(t *testing.T) {
	a := NewRESTAdapter(zap.NewNop())
	a.OnMessage(func(msg *InboundMessage) {
		// Answer from another goroutine like the real router does.
		go func() {
			_ = a.Send(context.Background(), &OutboundMessage{
				ConversationID: msg.ConversationID,
				Content:        "echo: " + msg.Content,
			})
		}()
	})

	srv := httptest.NewServer(a.Routes())
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/message", "application/json",
		strings.NewReader(`{"user_id":"u1","content":"hello"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out OutboundMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Content != "echo: hello" {
		t.Errorf("content = %q", out.Content)
	}
}

func TestRESTAdapterRejectsEmptyContent(t *testing.T) {
	a := NewRESTAdapter(zap.NewNop())
	srv := httptest.NewServer(a.Routes())
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/message", "application/json",
		strings.NewReader(`{"user_id":"u1"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
