package reply

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/guildreply/guildreply/pkg/chat"
)

// collection is one guild's ordered rule list. mu guards rules and every
// rule reachable from it.
type collection struct {
	mu    sync.Mutex
	rules []*Rule
}

// Store maps guild IDs to their rule collections. Collections are created
// on first use with an atomic insert-if-absent, so concurrent first writes
// for the same guild land in the same collection. Operations on different
// guilds never contend.
type Store struct {
	guilds sync.Map // uint64 -> *collection
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) lookup(guildID uint64) (*collection, bool) {
	v, ok := s.guilds.Load(guildID)
	if !ok {
		return nil, false
	}
	return v.(*collection), true
}

func (s *Store) lookupOrCreate(guildID uint64) *collection {
	if c, ok := s.lookup(guildID); ok {
		return c
	}
	v, _ := s.guilds.LoadOrStore(guildID, &collection{})
	return v.(*collection)
}

// AddRule appends rule to the guild's collection, creating it if needed.
// The store keeps its own copy of rule.
func (s *Store) AddRule(guildID uint64, rule *Rule) {
	c := s.lookupOrCreate(guildID)
	r := rule.Clone()

	c.mu.Lock()
	c.rules = append(c.rules, r)
	c.mu.Unlock()
}

// RemoveRule deletes every rule with the given id and reports whether
// anything was removed.
func (s *Store) RemoveRule(guildID uint64, ruleID uuid.UUID) bool {
	c, ok := s.lookup(guildID)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.rules)
	c.rules = slices.DeleteFunc(c.rules, func(r *Rule) bool { return r.ID == ruleID })
	return len(c.rules) != before
}

// GetRule returns a copy of the rule with the given id.
func (s *Store) GetRule(guildID uint64, ruleID uuid.UUID) (*Rule, bool) {
	c, ok := s.lookup(guildID)
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rules {
		if r.ID == ruleID {
			return r.Clone(), true
		}
	}
	return nil, false
}

// UpdateRule applies fn to the stored rule under the guild lock. It returns
// false when the rule does not exist. fn must not retain the pointer.
func (s *Store) UpdateRule(guildID uint64, ruleID uuid.UUID, fn func(*Rule)) bool {
	c, ok := s.lookup(guildID)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rules {
		if r.ID == ruleID {
			fn(r)
			return true
		}
	}
	return false
}

// ListIDs returns the rule ids of a guild in evaluation order.
func (s *Store) ListIDs(guildID uint64) []uuid.UUID {
	c, ok := s.lookup(guildID)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(c.rules))
	for _, r := range c.rules {
		ids = append(ids, r.ID)
	}
	return ids
}

// ReplaceAll swaps the guild's whole collection for copies of rules.
func (s *Store) ReplaceAll(guildID uint64, rules []*Rule) {
	next := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		next = append(next, r.Clone())
	}

	c := s.lookupOrCreate(guildID)
	c.mu.Lock()
	c.rules = next
	c.mu.Unlock()
}

// Snapshot returns the guild's rules in persisted form, in order.
func (s *Store) Snapshot(guildID uint64) []Record {
	c, ok := s.lookup(guildID)
	if !ok {
		return []Record{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	recs := make([]Record, 0, len(c.rules))
	for _, r := range c.rules {
		recs = append(recs, r.Record())
	}
	return recs
}

// Guilds returns every guild that has a collection.
func (s *Store) Guilds() []uint64 {
	var ids []uint64
	s.guilds.Range(func(k, _ any) bool {
		ids = append(ids, k.(uint64))
		return true
	})
	slices.Sort(ids)
	return ids
}

// firstMatch scans the guild's rules in order and returns a copy of the
// first rule that fires. The reply text is captured under the lock.
func (s *Store) firstMatch(msg chat.Message) (ruleID uuid.UUID, text string, found bool) {
	c, ok := s.lookup(msg.GuildID)
	if !ok {
		return uuid.Nil, "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rules {
		if r.Fires(msg) {
			return r.ID, r.Reply, true
		}
	}
	return uuid.Nil, "", false
}
