package reply

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/guildreply/guildreply/pkg/chat"
)

// ErrInvalidRule is returned for rules that can never be evaluated.
var ErrInvalidRule = errors.New("invalid reply rule")

// MatchCondition selects how a trigger is compared against message content.
type MatchCondition int

const (
	Full MatchCondition = iota
	Any
	StartsWith
	EndsWith
)

var conditionNames = [...]string{
	Full:       "Full",
	Any:        "Any",
	StartsWith: "StartsWith",
	EndsWith:   "EndsWith",
}

func (c MatchCondition) String() string {
	if c < Full || c > EndsWith {
		return "MatchCondition(" + strconv.Itoa(int(c)) + ")"
	}
	return conditionNames[c]
}

// ParseMatchCondition parses the persisted form ("Full", "Any", ...).
func ParseMatchCondition(s string) (MatchCondition, error) {
	for i, name := range conditionNames {
		if name == s {
			return MatchCondition(i), nil
		}
	}
	return Full, fmt.Errorf("unknown match condition %q", s)
}

// ConditionKeyword parses the keyword an operator types in a dialogue
// (any, full, startsWith, endsWith).
func ConditionKeyword(s string) (MatchCondition, bool) {
	switch s {
	case "any":
		return Any, true
	case "full":
		return Full, true
	case "startsWith":
		return StartsWith, true
	case "endsWith":
		return EndsWith, true
	}
	return Full, false
}

// Rule is a trigger -> reply mapping scoped to a set of users and channels.
// A nil Trigger matches every message regardless of Condition.
type Rule struct {
	ID        uuid.UUID
	Trigger   *string
	Condition MatchCondition
	Reply     string
	// Users and Channels are allow-lists; empty means unrestricted.
	Users    []uint64
	Channels []uint64
}

// NewRule creates a rule with a fresh identifier.
func NewRule(trigger *string, replyText string, cond MatchCondition, users, channels []uint64) *Rule {
	return &Rule{
		ID:        uuid.New(),
		Trigger:   trigger,
		Condition: cond,
		Reply:     replyText,
		Users:     users,
		Channels:  channels,
	}
}

// Validate reports whether the rule is usable by the trigger engine.
func (r *Rule) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if r.Trigger != nil && *r.Trigger == "" {
		return fmt.Errorf("%w: empty trigger must be stored as match-everything", ErrInvalidRule)
	}
	if r.Condition < Full || r.Condition > EndsWith {
		return fmt.Errorf("%w: %v", ErrInvalidRule, r.Condition)
	}
	return nil
}

// MatchesEverything reports whether the rule fires on any content.
func (r *Rule) MatchesEverything() bool {
	return r.Trigger == nil
}

// Fires decides whether the rule should answer msg. It has no side effects.
func (r *Rule) Fires(msg chat.Message) bool {
	if !r.structuralMatch(msg.Content) {
		return false
	}
	if len(r.Users) > 0 && !slices.Contains(r.Users, msg.AuthorID) {
		return false
	}
	if len(r.Channels) > 0 && !slices.Contains(r.Channels, msg.ChannelID) {
		return false
	}
	return true
}

func (r *Rule) structuralMatch(content string) bool {
	if r.Trigger == nil {
		return true
	}
	trigger := *r.Trigger
	switch r.Condition {
	case Full:
		return content == trigger
	case Any:
		return strings.Contains(content, trigger)
	case StartsWith:
		return strings.HasPrefix(content, trigger)
	case EndsWith:
		return strings.HasSuffix(content, trigger)
	}
	return false
}

// Clone returns a deep copy that shares no memory with r.
func (r *Rule) Clone() *Rule {
	c := *r
	if r.Trigger != nil {
		t := *r.Trigger
		c.Trigger = &t
	}
	c.Users = slices.Clone(r.Users)
	c.Channels = slices.Clone(r.Channels)
	return &c
}

// Describe renders the rule for the info command.
func (r *Rule) Describe() string {
	var b strings.Builder

	b.WriteString("Trigger:\n")
	if r.Trigger == nil {
		b.WriteString("everything")
	} else {
		b.WriteString(*r.Trigger)
	}
	b.WriteString("\n\nReply:\n")
	b.WriteString(r.Reply)
	b.WriteString("\n\nReply to (user IDs):\n")
	writeIDs(&b, r.Users, "everyone")
	b.WriteString("\nReply in (channel IDs):\n")
	writeIDs(&b, r.Channels, "anywhere")
	b.WriteString("\nTrigger match type:\n")
	b.WriteString(r.Condition.String())
	b.WriteString("\n\nID:\n")
	b.WriteString(r.ID.String())
	b.WriteString("\n")

	return b.String()
}

func writeIDs(b *strings.Builder, ids []uint64, empty string) {
	if len(ids) == 0 {
		b.WriteString(empty)
		b.WriteString("\n")
		return
	}
	for _, id := range ids {
		b.WriteString(strconv.FormatUint(id, 10))
		b.WriteString("\n")
	}
}
