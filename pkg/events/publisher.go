package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pitabwire/frame/queue"
	"github.com/rs/xid"
)

const defaultSubscriberBuffer = 64

// Publisher sends bot events to the frame queue and to in-process
// listeners. Methods on a nil *Publisher do nothing.
type Publisher struct {
	queueMgr queue.Manager
	source   string
	queueRef string

	mu        sync.RWMutex
	listeners map[string]chan Envelope
}

// NewPublisher returns a Publisher tagging envelopes with source and
// publishing them to queueRef. With a nil queueMgr only local listeners
// see events.
func NewPublisher(queueMgr queue.Manager, source string, queueRef string) *Publisher {
	return &Publisher{
		queueMgr:  queueMgr,
		source:    source,
		queueRef:  queueRef,
		listeners: make(map[string]chan Envelope),
	}
}

// Emit wraps data in an envelope about subject and delivers it.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, subject string, data any) error {
	if p == nil {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env := Envelope{
		ID:        xid.New().String(),
		Type:      eventType,
		Source:    p.source,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}

	p.notify(ctx, env)

	if p.queueMgr == nil {
		return nil
	}
	return p.queueMgr.Publish(ctx, p.queueRef, env)
}

// notify hands env to every listener without blocking; a full listener
// misses the event.
func (p *Publisher) notify(ctx context.Context, env Envelope) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for id, ch := range p.listeners {
		select {
		case ch <- env:
		default:
			slog.WarnContext(ctx, "listener full, event dropped",
				slog.String("listener", id),
				slog.String("event_type", string(env.Type)))
		}
	}
}

// Subscribe registers a listener under id. Release it with Unsubscribe.
func (p *Publisher) Subscribe(id string, bufSize int) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = defaultSubscriberBuffer
	}
	ch := make(chan Envelope, bufSize)
	p.mu.Lock()
	p.listeners[id] = ch
	p.mu.Unlock()
	return ch
}

// Unsubscribe drops the listener and closes its channel.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.listeners[id]; ok {
		close(ch)
		delete(p.listeners, id)
	}
}
