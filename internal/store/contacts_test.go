package store

import (
	"testing"
)

func TestScreenOwnerAlwaysProcessed(t *testing.T) {
	s := newTestStore(t)
	// Even a blocked owner conversation passes.
	s.Contacts.Block("discord:owner", "test", "")

	sc := s.Contacts.Screen("discord:owner", []string{"discord:owner"})
	if !sc.Process {
		t.Error("owner conversation was not processed")
	}
	if sc.Priority != PriorityHigh {
		t.Errorf("owner priority = %q, want HIGH", sc.Priority)
	}
}

func TestScreenBlockedAndPriority(t *testing.T) {
	s := newTestStore(t)
	s.Contacts.Block("slack:spam", "noisy", "Spammer")
	s.Contacts.AddPriority(PriorityContact{
		ConversationID: "slack:boss",
		Name:           "Boss",
		Rules:          []ContactRule{{Type: RuleOnlyKeywords, Keywords: []string{"urgent"}}},
	})

	if sc := s.Contacts.Screen("slack:spam", nil); sc.Process {
		t.Error("blocked contact was processed")
	}

	sc := s.Contacts.Screen("slack:boss", nil)
	if !sc.Process || sc.Priority != PriorityHigh || sc.Name != "Boss" {
		t.Errorf("priority screening = %+v", sc)
	}
	if len(sc.Rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(sc.Rules))
	}

	if sc := s.Contacts.Screen("slack:random", nil); !sc.Process || sc.Priority != PriorityMedium {
		t.Errorf("default screening = %+v", sc)
	}
}

func TestApplyRules(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		rules   []ContactRule
		process bool
		forced  string
		notify  bool
	}{
		{
			name:    "no rules",
			body:    "hello",
			process: true,
		},
		{
			name:    "ignore keyword hit",
			body:    "please UNSUBSCRIBE me",
			rules:   []ContactRule{{Type: RuleIgnoreKeywords, Keywords: []string{"unsubscribe"}}},
			process: false,
		},
		{
			name:    "only keyword miss",
			body:    "lunch tomorrow?",
			rules:   []ContactRule{{Type: RuleOnlyKeywords, Keywords: []string{"urgent"}}},
			process: false,
		},
		{
			name:    "only keyword hit",
			body:    "URGENT: server down",
			rules:   []ContactRule{{Type: RuleOnlyKeywords, Keywords: []string{"urgent"}}},
			process: true,
		},
		{
			name:    "forced category",
			body:    "team standup at 10",
			rules:   []ContactRule{{Type: RuleAutoCategorize, ForceCategory: "REMINDER"}},
			process: true,
			forced:  "REMINDER",
		},
		{
			name:    "notification only",
			body:    "fyi",
			rules:   []ContactRule{{Type: RuleNotificationOnly}},
			process: true,
			notify:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ApplyRules(tt.body, tt.rules)
			if res.Process != tt.process {
				t.Errorf("process = %v, want %v", res.Process, tt.process)
			}
			if res.ForceCategory != tt.forced {
				t.Errorf("forced = %q, want %q", res.ForceCategory, tt.forced)
			}
			if res.NotifyOnly != tt.notify {
				t.Errorf("notifyOnly = %v, want %v", res.NotifyOnly, tt.notify)
			}
		})
	}
}

func TestUnblockAndRemovePriority(t *testing.T) {
	s := newTestStore(t)
	s.Contacts.Block("discord:x", "r", "")
	if _, err := s.Contacts.Unblock("discord:x"); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if _, err := s.Contacts.Unblock("discord:x"); err == nil {
		t.Error("expected error unblocking unknown contact")
	}

	s.Contacts.AddPriority(PriorityContact{ConversationID: "discord:y"})
	if _, err := s.Contacts.RemovePriority("discord:y"); err != nil {
		t.Fatalf("remove priority: %v", err)
	}
	if len(s.Contacts.PriorityList()) != 0 {
		t.Error("priority list not empty")
	}
}
