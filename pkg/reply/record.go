package reply

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Record is the persisted form of a Rule. Field order matches the backup
// files written by earlier versions of the bot.
type Record struct {
	ID             string   `json:"id"             yaml:"id"`
	Trigger        *string  `json:"trigger"        yaml:"trigger"`
	Reply          string   `json:"reply"          yaml:"reply"`
	MatchCondition string   `json:"matchCondition" yaml:"matchCondition"`
	UserIDs        []uint64 `json:"userIds"        yaml:"userIds"`
	ChannelIDs     []uint64 `json:"channelIds"     yaml:"channelIds"`
}

// Record converts the rule to its persisted form.
func (r *Rule) Record() Record {
	var trigger *string
	if r.Trigger != nil {
		t := *r.Trigger
		trigger = &t
	}
	return Record{
		ID:             r.ID.String(),
		Trigger:        trigger,
		Reply:          r.Reply,
		MatchCondition: r.Condition.String(),
		UserIDs:        slices.Clone(r.Users),
		ChannelIDs:     slices.Clone(r.Channels),
	}
}

// FromRecord rebuilds a rule from its persisted form.
func FromRecord(rec Record) (*Rule, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("record id %q: %w", rec.ID, err)
	}
	cond, err := ParseMatchCondition(rec.MatchCondition)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	r := &Rule{
		ID:        id,
		Condition: cond,
		Reply:     rec.Reply,
		Users:     slices.Clone(rec.UserIDs),
		Channels:  slices.Clone(rec.ChannelIDs),
	}
	if rec.Trigger != nil {
		t := *rec.Trigger
		r.Trigger = &t
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	return r, nil
}

// FromRecords converts a whole backup, failing on the first bad record.
func FromRecords(recs []Record) ([]*Rule, error) {
	rules := make([]*Rule, 0, len(recs))
	for _, rec := range recs {
		r, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
