package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RuleType identifies a per-contact processing rule.
type RuleType string

const (
	RuleIgnoreKeywords   RuleType = "IGNORE_KEYWORDS"
	RuleOnlyKeywords     RuleType = "ONLY_KEYWORDS"
	RuleAutoCategorize   RuleType = "AUTO_CATEGORIZE"
	RuleNotificationOnly RuleType = "NOTIFICATION_ONLY"
)

// ContactRule adjusts how messages from a priority contact are processed.
type ContactRule struct {
	Type          RuleType `json:"type"`
	Keywords      []string `json:"keywords,omitempty"`
	ForceCategory string   `json:"force_category,omitempty"`
}

// BlockedContact is a conversation whose messages are dropped.
type BlockedContact struct {
	ConversationID string    `json:"conversation_id"`
	Name           string    `json:"name,omitempty"`
	Reason         string    `json:"reason"`
	BlockedAt      time.Time `json:"blocked_at"`
}

// PriorityContact is a conversation processed with elevated priority and
// optional rules.
type PriorityContact struct {
	ConversationID string        `json:"conversation_id"`
	Name           string        `json:"name,omitempty"`
	Priority       Priority      `json:"priority"`
	Rules          []ContactRule `json:"rules,omitempty"`
	AddedAt        time.Time     `json:"added_at"`
}

// Screening is the outcome of checking a conversation against the lists.
type Screening struct {
	Process  bool
	Reason   string
	Priority Priority
	Name     string
	Rules    []ContactRule
}

// Contacts holds the blocked and priority contact lists.
type Contacts struct {
	blockedPath  string
	priorityPath string
	blocked      []BlockedContact
	priority     []PriorityContact
	mu           sync.Mutex
	logger       *zap.Logger
}

func newContacts(blockedPath, priorityPath string, logger *zap.Logger) *Contacts {
	return &Contacts{blockedPath: blockedPath, priorityPath: priorityPath, logger: logger}
}

// Reload re-reads both lists from disk.
func (c *Contacts) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	blocked := []BlockedContact{}
	if err := readJSON(c.blockedPath, &blocked); err != nil {
		return err
	}
	priority := []PriorityContact{}
	if err := readJSON(c.priorityPath, &priority); err != nil {
		return err
	}
	c.blocked = blocked
	c.priority = priority
	return nil
}

// Screen decides whether a message from the conversation should be processed.
// Owner conversations always pass with high priority.
func (c *Contacts) Screen(conversationID string, owners []string) Screening {
	for _, o := range owners {
		if conversationID == o {
			return Screening{Process: true, Priority: PriorityHigh}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range c.blocked {
		if b.ConversationID == conversationID {
			reason := b.Reason
			if reason == "" {
				reason = "blocked contact"
			}
			return Screening{Process: false, Reason: reason}
		}
	}
	for _, p := range c.priority {
		if p.ConversationID == conversationID {
			prio := p.Priority
			if prio == "" {
				prio = PriorityHigh
			}
			return Screening{Process: true, Priority: prio, Name: p.Name, Rules: p.Rules}
		}
	}
	return Screening{Process: true, Priority: PriorityMedium}
}

// RuleResult is the outcome of applying contact rules to a message body.
type RuleResult struct {
	Process       bool
	ForceCategory string
	NotifyOnly    bool
	Notes         []string
}

// ApplyRules evaluates a contact's rules against a message body.
func ApplyRules(body string, rules []ContactRule) RuleResult {
	res := RuleResult{Process: true}
	lower := strings.ToLower(body)

	for _, rule := range rules {
		switch rule.Type {
		case RuleIgnoreKeywords:
			if containsAny(lower, rule.Keywords) {
				res.Process = false
				res.Notes = append(res.Notes, "ignored by keyword rule")
			}
		case RuleOnlyKeywords:
			if !containsAny(lower, rule.Keywords) {
				res.Process = false
				res.Notes = append(res.Notes, "missing required keyword")
			}
		case RuleAutoCategorize:
			if rule.ForceCategory != "" {
				res.ForceCategory = rule.ForceCategory
			}
		case RuleNotificationOnly:
			res.NotifyOnly = true
		}
	}
	return res
}

func containsAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Block adds or updates a blocked contact and persists.
func (c *Contacts) Block(conversationID, reason, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.blocked {
		if c.blocked[i].ConversationID == conversationID {
			c.blocked[i].Reason = reason
			c.blocked[i].Name = name
			c.blocked[i].BlockedAt = time.Now()
			return c.persistBlocked()
		}
	}
	c.blocked = append(c.blocked, BlockedContact{
		ConversationID: conversationID,
		Name:           name,
		Reason:         reason,
		BlockedAt:      time.Now(),
	})
	return c.persistBlocked()
}

// Unblock removes a blocked contact, returning it.
func (c *Contacts) Unblock(conversationID string) (BlockedContact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.blocked {
		if c.blocked[i].ConversationID == conversationID {
			removed := c.blocked[i]
			c.blocked = append(c.blocked[:i], c.blocked[i+1:]...)
			return removed, c.persistBlocked()
		}
	}
	return BlockedContact{}, fmt.Errorf("contact %s not blocked", conversationID)
}

// AddPriority adds or updates a priority contact and persists.
func (c *Contacts) AddPriority(pc PriorityContact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pc.Priority == "" {
		pc.Priority = PriorityHigh
	}
	for i := range c.priority {
		if c.priority[i].ConversationID == pc.ConversationID {
			pc.AddedAt = c.priority[i].AddedAt
			c.priority[i] = pc
			return c.persistPriority()
		}
	}
	pc.AddedAt = time.Now()
	c.priority = append(c.priority, pc)
	return c.persistPriority()
}

// RemovePriority removes a priority contact, returning it.
func (c *Contacts) RemovePriority(conversationID string) (PriorityContact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.priority {
		if c.priority[i].ConversationID == conversationID {
			removed := c.priority[i]
			c.priority = append(c.priority[:i], c.priority[i+1:]...)
			return removed, c.persistPriority()
		}
	}
	return PriorityContact{}, fmt.Errorf("contact %s not a priority contact", conversationID)
}

// Blocked returns a copy of the blocked list.
func (c *Contacts) Blocked() []BlockedContact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]BlockedContact, len(c.blocked))
	copy(out, c.blocked)
	return out
}

// PriorityList returns a copy of the priority list.
func (c *Contacts) PriorityList() []PriorityContact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PriorityContact, len(c.priority))
	copy(out, c.priority)
	return out
}

func (c *Contacts) persistBlocked() error {
	if err := writeJSON(c.blockedPath, c.blocked); err != nil {
		return fmt.Errorf("persist blocked contacts: %w", err)
	}
	return nil
}

func (c *Contacts) persistPriority() error {
	if err := writeJSON(c.priorityPath, c.priority); err != nil {
		return fmt.Errorf("persist priority contacts: %w", err)
	}
	return nil
}
