package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEmitFansOutToSubscribers(t *testing.T) {
	pub := NewPublisher(nil, "replies", "events")
	ch := pub.Subscribe("test", 4)
	defer pub.Unsubscribe("test")

	err := pub.Emit(t.Context(), RuleAdded, "guild-42", &RuleData{
		GuildID: 42,
		RuleID:  "0f8fad5b-d9cb-469f-a165-70867728950e",
		ActorID: 7,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	select {
	case env := <-ch:
		if env.Type != RuleAdded {
			t.Errorf("type = %q, want %q", env.Type, RuleAdded)
		}
		if env.Source != "replies" {
			t.Errorf("source = %q, want %q", env.Source, "replies")
		}
		if env.Subject != "guild-42" {
			t.Errorf("subject = %q, want %q", env.Subject, "guild-42")
		}
		if env.ID == "" {
			t.Error("expected generated envelope id")
		}

		var payload RuleData
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.GuildID != 42 || payload.ActorID != 7 {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestEmitDropsWhenSubscriberFull(t *testing.T) {
	pub := NewPublisher(nil, "replies", "events")
	ch := pub.Subscribe("slow", 1)
	defer pub.Unsubscribe("slow")

	for i := 0; i < 3; i++ {
		if err := pub.Emit(t.Context(), ReplyFired, "g", &ReplyFiredData{GuildID: 1}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if len(ch) != 1 {
		t.Errorf("buffered = %d, want 1", len(ch))
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var pub *Publisher
	if err := pub.Emit(t.Context(), DialogueStarted, "x", &DialogueData{}); err != nil {
		t.Errorf("nil publisher Emit: %v", err)
	}
}

func TestEventTypeConstants(t *testing.T) {
	types := []EventType{
		RuleAdded, RuleRemoved, RuleModified, RulesRestored, ReplyFired,
		DialogueStarted, DialogueTransition, DialogueFinished,
		DialogueCancelled, DialogueExpired,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		if et == "" {
			t.Error("empty event type constant")
		}
		if seen[et] {
			t.Errorf("duplicate event type: %q", et)
		}
		seen[et] = true
	}
}

func TestEmitRejectsUnencodablePayload(t *testing.T) {
	pub := NewPublisher(nil, "replies", "events")
	ch := pub.Subscribe("watcher", 1)
	defer pub.Unsubscribe("watcher")

	if err := pub.Emit(t.Context(), ReplyFired, "guild-1", make(chan int)); err == nil {
		t.Fatal("expected an encoding error")
	}
	if len(ch) != 0 {
		t.Errorf("listener received %d events for a failed emit", len(ch))
	}
}
