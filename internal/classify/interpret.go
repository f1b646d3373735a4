package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/valet/internal/provider"
	"go.uber.org/zap"
)

// Action names the owner commands the interpreter may return.
type Action string

const (
	ActionShowMemories       Action = "SHOW_MEMORIES"
	ActionShowReminders      Action = "SHOW_REMINDERS"
	ActionSaveMemory         Action = "SAVE_MEMORY"
	ActionSetReminder        Action = "SET_REMINDER"
	ActionDeleteMemory       Action = "DELETE_MEMORY"
	ActionCancelReminder     Action = "CANCEL_REMINDER"
	ActionDeleteAllMemories  Action = "DELETE_ALL_MEMORIES"
	ActionDeleteAllReminders Action = "DELETE_ALL_REMINDERS"
	ActionShowUpdates        Action = "SHOW_UPDATES"
	ActionDeleteAllUpdates   Action = "DELETE_ALL_UPDATES"
	ActionShowBlocked        Action = "SHOW_BLOCKED"
	ActionShowPriority       Action = "SHOW_PRIORITY"
	ActionBlockContact       Action = "BLOCK_CONTACT"
	ActionUnblockContact     Action = "UNBLOCK_CONTACT"
	ActionAddPriority        Action = "ADD_PRIORITY"
	ActionRemovePriority     Action = "REMOVE_PRIORITY"
)

var knownActions = map[Action]string{
	ActionShowMemories:       "user wants to see/list/show their memories or asks what they've saved",
	ActionShowReminders:      "user wants to see/list/show their reminders or scheduled tasks",
	ActionSaveMemory:         "user wants to save something to memory",
	ActionSetReminder:        "user wants to set a reminder or be reminded of something",
	ActionDeleteMemory:       "user wants to delete/remove a memory",
	ActionCancelReminder:     "user wants to cancel/delete a reminder",
	ActionDeleteAllMemories:  "user wants to delete/clear all memories",
	ActionDeleteAllReminders: "user wants to delete/clear all reminders",
	ActionShowUpdates:        "user wants to see important updates",
	ActionDeleteAllUpdates:   "user wants to clear all updates",
	ActionShowBlocked:        "user wants to see blocked contacts",
	ActionShowPriority:       "user wants to see priority contacts",
	ActionBlockContact:       "user wants to block a contact",
	ActionUnblockContact:     "user wants to unblock a contact",
	ActionAddPriority:        "user wants to add a priority contact",
	ActionRemovePriority:     "user wants to remove a priority contact",
}

// actionOrder keeps the prompt stable between calls.
var actionOrder = []Action{
	ActionShowMemories, ActionShowReminders, ActionSaveMemory, ActionSetReminder,
	ActionDeleteMemory, ActionCancelReminder, ActionDeleteAllMemories,
	ActionDeleteAllReminders, ActionShowUpdates, ActionDeleteAllUpdates,
	ActionShowBlocked, ActionShowPriority, ActionBlockContact,
	ActionUnblockContact, ActionAddPriority, ActionRemovePriority,
}

// Interpret maps a free-text owner command onto a known action. Returns ""
// when the command matches nothing or the provider is unavailable; output
// outside the whitelist is discarded.
func (c *Classifier) Interpret(ctx context.Context, command string) Action {
	if !c.Available() {
		return ""
	}

	var actions strings.Builder
	for _, a := range actionOrder {
		fmt.Fprintf(&actions, "- %q - if %s\n", a, knownActions[a])
	}

	prompt := fmt.Sprintf(`Analyze this user command and return ONLY one of these exact actions if it matches, otherwise return "NONE":

Actions:
%s
User command: %q

Return only the action name or "NONE":`, actions.String(), command)

	resp, err := c.providers.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		c.logger.Warn("command interpretation call failed", zap.Error(err))
		return ""
	}

	action := Action(strings.Trim(stripFences(resp.Content), "\"`"))
	if _, ok := knownActions[action]; !ok {
		return ""
	}
	return action
}
