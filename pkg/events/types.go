package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	RuleAdded          EventType = "rule.added"
	RuleRemoved        EventType = "rule.removed"
	RuleModified       EventType = "rule.modified"
	RulesRestored      EventType = "rules.restored"
	ReplyFired         EventType = "reply.fired"
	DialogueStarted    EventType = "dialogue.started"
	DialogueTransition EventType = "dialogue.transition"
	DialogueFinished   EventType = "dialogue.finished"
	DialogueCancelled  EventType = "dialogue.cancelled"
	DialogueExpired    EventType = "dialogue.expired"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	Subject   string            `json:"subject"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// RuleData is the payload for rule.* events.
type RuleData struct {
	GuildID uint64 `json:"guild_id"`
	RuleID  string `json:"rule_id"`
	ActorID uint64 `json:"actor_id,omitempty"`
}

// RulesRestoredData is the payload for rules.restored events.
type RulesRestoredData struct {
	GuildID uint64 `json:"guild_id"`
	Count   int    `json:"count"`
	Origin  string `json:"origin"` // "startup", "command", "watcher"
}

// ReplyFiredData is the payload for reply.fired events.
type ReplyFiredData struct {
	GuildID   uint64 `json:"guild_id"`
	ChannelID uint64 `json:"channel_id"`
	RuleID    string `json:"rule_id"`
	MessageID string `json:"message_id,omitempty"`
}

// DialogueData is the payload for dialogue lifecycle events.
type DialogueData struct {
	DialogName string `json:"dialog_name"`
	GuildID    uint64 `json:"guild_id"`
	UserID     uint64 `json:"user_id"`
	Reason     string `json:"reason,omitempty"`
}

// DialogueTransitionData is the payload for dialogue.transition events.
type DialogueTransitionData struct {
	DialogName string `json:"dialog_name"`
	FromState  string `json:"from_state"`
	ToState    string `json:"to_state"`
}
