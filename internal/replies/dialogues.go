package replies

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/guildreply/guildreply/pkg/chat"
	"github.com/guildreply/guildreply/pkg/dialog"
	"github.com/guildreply/guildreply/pkg/events"
	"github.com/guildreply/guildreply/pkg/reply"
)

// Add dialogue states.
const (
	stTrigger   dialog.State = "trigger"
	stMatchType dialog.State = "matchType"
	stReply     dialog.State = "reply"
	stUsers     dialog.State = "users"
	stChannels  dialog.State = "channels"
)

// Modify dialogue states. The field states are named after the keyword the
// user types to select them.
const (
	stReplyID        dialog.State = "replyId"
	stModValue       dialog.State = "modValue"
	stMatchCondition dialog.State = "matchCondition"
	stRepeat         dialog.State = "repeat"
)

var modifyFields = []dialog.State{stTrigger, stReply, stMatchCondition, stUsers, stChannels}

var repeatKeywords = []string{"y", "Y", "yes", "Yes"}

// addDraft accumulates the fields of a rule being created.
type addDraft struct {
	Trigger   *string
	Reply     string
	Condition reply.MatchCondition
	Users     []uint64
	Channels  []uint64
}

// modifyDraft references the rule under edit.
type modifyDraft struct {
	RuleID  uuid.UUID
	Changed bool
}

func (m *Module) addDefinition() *dialog.Definition[addDraft] {
	return dialog.MustDefinition(dialog.Definition[addDraft]{
		Name: "reply.add",
		States: map[dialog.State]dialog.StateSpec[addDraft]{
			dialog.StateStart: {
				Next: []dialog.State{stTrigger},
				Handle: func(context.Context, dialog.State, chat.Message, *addDraft) dialog.Transition {
					return dialog.Goto(stTrigger, promptTrigger)
				},
			},
			stTrigger: {
				Next: []dialog.State{stMatchType, stReply},
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *addDraft) dialog.Transition {
					switch msg.Content {
					case "":
						return dialog.Goto(state, msgTriggerEmpty)
					case kwEverything:
						d.Trigger = nil
						return dialog.Goto(stReply, promptReply)
					}
					t := msg.Content
					d.Trigger = &t
					return dialog.Goto(stMatchType, promptMatchType)
				},
			},
			stMatchType: {
				Next: []dialog.State{stReply},
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *addDraft) dialog.Transition {
					cond, ok := reply.ConditionKeyword(msg.Content)
					if !ok {
						return dialog.Goto(state, msgMatchTypeRetry)
					}
					d.Condition = cond
					return dialog.Goto(stReply, promptReply)
				},
			},
			stReply: {
				Next: []dialog.State{stUsers},
				Handle: func(_ context.Context, _ dialog.State, msg chat.Message, d *addDraft) dialog.Transition {
					d.Reply = msg.Content
					return dialog.Goto(stUsers, promptUsers)
				},
			},
			stUsers: {
				Next: []dialog.State{stChannels},
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *addDraft) dialog.Transition {
					ids, ok := scopeIDs(msg.Content, kwEveryone)
					if !ok {
						return dialog.Goto(state, msgUsersRetry)
					}
					d.Users = ids
					return dialog.Goto(stChannels, promptChannels)
				},
			},
			stChannels: {
				Next: []dialog.State{dialog.StateFinal},
				Handle: func(ctx context.Context, state dialog.State, msg chat.Message, d *addDraft) dialog.Transition {
					ids, ok := scopeIDs(msg.Content, kwAnywhere)
					if !ok {
						return dialog.Goto(state, msgChannelsRetry)
					}
					d.Channels = ids

					rule := reply.NewRule(d.Trigger, d.Reply, d.Condition, d.Users, d.Channels)
					m.store.AddRule(msg.GuildID, rule)
					m.emitRule(ctx, events.RuleAdded, msg, rule.ID)

					responses := []string{msgAdding, fmt.Sprintf("Reply added with ID `%s`.", rule.ID)}
					if err := m.Persist(ctx, msg.GuildID); err != nil {
						responses = append(responses, msgSaveFailed)
					}
					return dialog.Goto(dialog.StateFinal, append(responses, msgTerminating)...)
				},
			},
		},
	})
}

func (m *Module) modifyDefinition() *dialog.Definition[modifyDraft] {
	// edit applies fn to the selected rule and returns to the repeat prompt,
	// or ends the dialogue when the rule no longer exists.
	edit := func(msg chat.Message, d *modifyDraft, fn func(*reply.Rule)) dialog.Transition {
		if !m.store.UpdateRule(msg.GuildID, d.RuleID, fn) {
			return dialog.Goto(dialog.StateFinal, msgRuleVanished, msgTerminating)
		}
		d.Changed = true
		return dialog.Goto(stRepeat, msgChangeAnother)
	}
	fieldNext := []dialog.State{stRepeat, dialog.StateFinal}

	return dialog.MustDefinition(dialog.Definition[modifyDraft]{
		Name: "reply.modify",
		States: map[dialog.State]dialog.StateSpec[modifyDraft]{
			dialog.StateStart: {
				Next: []dialog.State{stReplyID},
				Handle: func(context.Context, dialog.State, chat.Message, *modifyDraft) dialog.Transition {
					return dialog.Goto(stReplyID, promptReplyID)
				},
			},
			stReplyID: {
				Next: []dialog.State{stModValue},
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *modifyDraft) dialog.Transition {
					id, err := uuid.Parse(msg.Content)
					if err != nil {
						return dialog.Goto(state, msgInvalidIDRetry)
					}
					if _, ok := m.store.GetRule(msg.GuildID, id); !ok {
						return dialog.Goto(state, msgNoSuchRuleRetry)
					}
					d.RuleID = id
					return dialog.Goto(stModValue, promptSelected)
				},
			},
			stModValue: {
				Next: modifyFields,
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, _ *modifyDraft) dialog.Transition {
					field := dialog.State(msg.Content)
					if !slices.Contains(modifyFields, field) {
						return dialog.Goto(state, msgModValueRetry)
					}
					return dialog.Goto(field, msg.Content+" selected, specify the new value")
				},
			},
			stTrigger: {
				Next: fieldNext,
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *modifyDraft) dialog.Transition {
					if msg.Content == "" {
						return dialog.Goto(state, msgTriggerEmpty)
					}
					var trigger *string
					if msg.Content != kwEverything {
						t := msg.Content
						trigger = &t
					}
					return edit(msg, d, func(r *reply.Rule) { r.Trigger = trigger })
				},
			},
			stReply: {
				Next: fieldNext,
				Handle: func(_ context.Context, _ dialog.State, msg chat.Message, d *modifyDraft) dialog.Transition {
					text := msg.Content
					return edit(msg, d, func(r *reply.Rule) { r.Reply = text })
				},
			},
			stMatchCondition: {
				Next: fieldNext,
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *modifyDraft) dialog.Transition {
					cond, ok := reply.ConditionKeyword(msg.Content)
					if !ok {
						return dialog.Goto(state, msgMatchTypeRetry)
					}
					return edit(msg, d, func(r *reply.Rule) { r.Condition = cond })
				},
			},
			stUsers: {
				Next: fieldNext,
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *modifyDraft) dialog.Transition {
					ids, ok := scopeIDs(msg.Content, kwEveryone)
					if !ok {
						return dialog.Goto(state, msgUsersRetry)
					}
					return edit(msg, d, func(r *reply.Rule) { r.Users = ids })
				},
			},
			stChannels: {
				Next: fieldNext,
				Handle: func(_ context.Context, state dialog.State, msg chat.Message, d *modifyDraft) dialog.Transition {
					ids, ok := scopeIDs(msg.Content, kwAnywhere)
					if !ok {
						return dialog.Goto(state, msgChannelsRetry)
					}
					return edit(msg, d, func(r *reply.Rule) { r.Channels = ids })
				},
			},
			stRepeat: {
				Next: []dialog.State{stModValue, dialog.StateFinal},
				Handle: func(ctx context.Context, _ dialog.State, msg chat.Message, d *modifyDraft) dialog.Transition {
					if slices.Contains(repeatKeywords, msg.Content) {
						return dialog.Goto(stModValue, promptModValue)
					}
					responses := []string{msgSaving}
					if d.Changed {
						m.emitRule(ctx, events.RuleModified, msg, d.RuleID)
					}
					if err := m.Persist(ctx, msg.GuildID); err != nil {
						responses = append(responses, msgSaveFailed)
					}
					return dialog.Goto(dialog.StateFinal, append(responses, msgTerminating)...)
				},
			},
		},
	})
}

// scopeIDs parses a user or channel scope answer. The wildcard keyword
// yields an empty, unrestricted scope.
func scopeIDs(content, wildcard string) ([]uint64, bool) {
	if content == wildcard {
		return nil, true
	}
	ids := ExtractIDs(content)
	return ids, ids != nil
}
