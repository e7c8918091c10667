package dialog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/guildreply/guildreply/pkg/chat"
	"github.com/guildreply/guildreply/pkg/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
	)
}

type outbox struct {
	mu   sync.Mutex
	msgs []string
}

func (o *outbox) Send(_ context.Context, _ uint64, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, text)
	return nil
}

func (o *outbox) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.msgs...)
}

func (o *outbox) last() string {
	all := o.all()
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

func newSample(key Key) *Session[draft] {
	return NewSession(MustDefinition(sampleDefinition()), key, draft{})
}

func TestManagerBeginRouteFinal(t *testing.T) {
	out := &outbox{}
	m := NewManager(out)
	key := Key{GuildID: 1, UserID: 3}
	ctx := t.Context()

	replaced, err := m.Begin(ctx, newSample(key), input("!bot reply add"))
	if err != nil || replaced {
		t.Fatalf("Begin = %v, %v", replaced, err)
	}
	if out.last() != "Specify trigger." {
		t.Errorf("first prompt = %q", out.last())
	}

	if m.Route(ctx, chat.Message{GuildID: 1, AuthorID: 4, Content: "hello"}) {
		t.Error("message from another user must not be routed")
	}
	if m.Route(ctx, chat.Message{GuildID: 2, AuthorID: 3, Content: "hello"}) {
		t.Error("message from another guild must not be routed")
	}

	if !m.Route(ctx, input("hello")) {
		t.Fatal("expected message to be consumed")
	}
	if !m.Route(ctx, input("hi")) {
		t.Fatal("expected message to be consumed")
	}
	if out.last() != "Done." {
		t.Errorf("last response = %q", out.last())
	}
	if _, ok := m.Active(key); ok {
		t.Error("session must be removed after final")
	}
	if m.Route(ctx, input("hello")) {
		t.Error("finished session must not consume messages")
	}
}

func TestManagerReplaceIsReported(t *testing.T) {
	out := &outbox{}
	pub := events.NewPublisher(nil, "test", "events")
	sub := pub.Subscribe("t", 16)
	defer pub.Unsubscribe("t")

	m := NewManager(out, WithPublisher(pub))
	key := Key{GuildID: 1, UserID: 3}

	first := newSample(key)
	if _, err := m.Begin(t.Context(), first, input("")); err != nil {
		t.Fatal(err)
	}
	second := newSample(key)
	replaced, err := m.Begin(t.Context(), second, input(""))
	if err != nil {
		t.Fatal(err)
	}
	if !replaced {
		t.Error("expected replaced = true")
	}

	active, _ := m.Active(key)
	if active.SessionID() != second.SessionID() {
		t.Error("second session must be active")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}

	found := false
	for _, msg := range out.all() {
		if msg == NoticeReplaced {
			found = true
		}
	}
	if !found {
		t.Errorf("replacement notice not sent: %v", out.all())
	}

	var cancelled bool
	for len(sub) > 0 {
		env := <-sub
		if env.Type == events.DialogueCancelled && env.Subject == first.SessionID() {
			cancelled = true
		}
	}
	if !cancelled {
		t.Error("expected dialogue.cancelled for the replaced session")
	}
}

func TestManagerCancelWord(t *testing.T) {
	out := &outbox{}
	m := NewManager(out, WithCancelWord("cancel"))
	key := Key{GuildID: 1, UserID: 3}

	if _, err := m.Begin(t.Context(), newSample(key), input("")); err != nil {
		t.Fatal(err)
	}
	if !m.Route(t.Context(), input(" Cancel ")) {
		t.Fatal("cancel word must be consumed")
	}
	if out.last() != NoticeCancelled {
		t.Errorf("last = %q", out.last())
	}
	if m.Len() != 0 {
		t.Error("session must be gone")
	}
}

func TestManagerCancel(t *testing.T) {
	m := NewManager(&outbox{})
	key := Key{GuildID: 1, UserID: 3}
	if _, err := m.Begin(t.Context(), newSample(key), input("")); err != nil {
		t.Fatal(err)
	}
	if !m.Cancel(t.Context(), key) {
		t.Error("Cancel = false, want true")
	}
	if m.Cancel(t.Context(), key) {
		t.Error("second Cancel = true, want false")
	}
}

func TestManagerAddressing(t *testing.T) {
	out := &outbox{}
	m := NewManager(out, WithAddressing(func(userID uint64, text string) string {
		return fmt.Sprintf("<@%d> %s", userID, text)
	}))
	if _, err := m.Begin(t.Context(), newSample(Key{GuildID: 1, UserID: 3}), input("")); err != nil {
		t.Fatal(err)
	}
	if out.last() != "<@3> Specify trigger." {
		t.Errorf("addressed prompt = %q", out.last())
	}
}

func TestManagerStepErrorEndsSession(t *testing.T) {
	def := sampleDefinition()
	def.States["trigger"] = StateSpec[draft]{
		Next: []State{"reply"},
		Handle: func(context.Context, State, chat.Message, *draft) Transition {
			return Goto("nowhere")
		},
	}
	out := &outbox{}
	m := NewManager(out)
	key := Key{GuildID: 1, UserID: 3}
	if _, err := m.Begin(t.Context(), NewSession(MustDefinition(def), key, draft{}), input("")); err != nil {
		t.Fatal(err)
	}

	if !m.Route(t.Context(), input("x")) {
		t.Fatal("message must be consumed")
	}
	if out.last() != NoticeFailed {
		t.Errorf("last = %q", out.last())
	}
	if m.Len() != 0 {
		t.Error("failed session must be removed")
	}
}

func TestManagerReapIdle(t *testing.T) {
	out := &outbox{}
	m := NewManager(out, WithIdleTimeout(time.Minute))
	stale := Key{GuildID: 1, UserID: 3}
	fresh := Key{GuildID: 1, UserID: 4}

	if _, err := m.Begin(t.Context(), newSample(stale), input("")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Begin(t.Context(), newSample(fresh), chat.Message{GuildID: 1, AuthorID: 4}); err != nil {
		t.Fatal(err)
	}

	conv, _ := m.Active(fresh)
	m.reapIdle(t.Context(), conv.LastActive().Add(30*time.Second))
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2 before timeout", m.Len())
	}

	m.reapIdle(t.Context(), time.Now().Add(2*time.Minute))
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0 after timeout", m.Len())
	}
	if out.last() != NoticeExpired {
		t.Errorf("last = %q", out.last())
	}
}

func TestManagerReaperStops(t *testing.T) {
	out := &outbox{}
	m := NewManager(out, WithIdleTimeout(time.Millisecond), WithReapInterval(5*time.Millisecond))
	if _, err := m.Begin(t.Context(), newSample(Key{GuildID: 1, UserID: 3}), input("")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	m.StartReaper(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for m.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if m.Len() != 0 {
		t.Error("reaper did not expire the idle session")
	}
}

func TestManagerConcurrentUsers(t *testing.T) {
	m := NewManager(chat.SenderFunc(func(context.Context, uint64, string) error { return nil }))
	ctx := t.Context()

	var wg sync.WaitGroup
	for u := uint64(1); u <= 16; u++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			key := Key{GuildID: 1, UserID: user}
			if _, err := m.Begin(ctx, newSample(key), chat.Message{GuildID: 1, AuthorID: user}); err != nil {
				t.Error(err)
				return
			}
			for _, in := range []string{"hello", "hi"} {
				if !m.Route(ctx, chat.Message{GuildID: 1, AuthorID: user, Content: in}) {
					t.Errorf("user %d: message not routed", user)
				}
			}
		}(u)
	}
	wg.Wait()

	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}
