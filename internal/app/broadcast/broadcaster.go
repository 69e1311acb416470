// Package broadcast fans roster events out to per-session subscribers.
package broadcast

import (
	"fmt"
	"sync"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultBuffer = 64

type topic struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

// Broadcaster keeps one topic per session code. Publish never blocks: each
// subscriber has its own queue and goroutine, so a slow peer only hurts
// itself.
type Broadcaster struct {
	mu     sync.RWMutex
	topics map[domain.SessionCode]*topic

	policy app.Policy
	buffer int
}

func New(policy app.Policy, buffer int) *Broadcaster {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		topics: make(map[domain.SessionCode]*topic),
		policy: policy,
		buffer: buffer,
	}
}

func (b *Broadcaster) topicFor(code domain.SessionCode) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[code]
	if !ok {
		t = &topic{subs: make(map[string]*Subscription)}
		b.topics[code] = t
	}
	return t
}

// Subscribe registers handler for every later event of code.
func (b *Broadcaster) Subscribe(code domain.SessionCode, handler Handler) *Subscription {
	sub := &Subscription{
		id:      uuid.NewString(),
		code:    code,
		handler: handler,
		queue:   make(chan domain.RosterEvent, b.buffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for {
		t := b.topicFor(code)
		t.mu.Lock()
		if t.closed {
			// Lost a race with CloseTopic; take the fresh topic.
			t.mu.Unlock()
			continue
		}
		t.subs[sub.id] = sub
		t.mu.Unlock()
		break
	}
	go b.deliver(sub)
	log.Debug().Str("module", "app.broadcast").Str("code", string(code)).Str("sub", sub.id).Msg("subscribed")
	return sub
}

// Unsubscribe stops delivery to sub; idempotent.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.remove(sub)
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.RLock()
	t, ok := b.topics[sub.code]
	b.mu.RUnlock()
	if ok {
		t.mu.Lock()
		if cur, ok := t.subs[sub.id]; ok && cur == sub {
			delete(t.subs, sub.id)
		}
		empty := len(t.subs) == 0 && !t.closed
		if empty {
			t.closed = true
		}
		sub.abort()
		t.mu.Unlock()
		if empty {
			b.mu.Lock()
			if cur, ok := b.topics[sub.code]; ok && cur == t {
				delete(b.topics, sub.code)
			}
			b.mu.Unlock()
		}
		return
	}
	// Topic already closed: no publisher can reach the queue any more.
	sub.abort()
}

// Publish queues ev for every current subscriber of ev.SessionCode and
// returns how many queues took it.
func (b *Broadcaster) Publish(ev domain.RosterEvent) int {
	b.mu.RLock()
	t, ok := b.topics[ev.SessionCode]
	b.mu.RUnlock()
	if !ok {
		return 0
	}

	var slow []*Subscription
	sent := 0
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return 0
	}
	for _, sub := range t.subs {
		if sub.State() != SubActive {
			continue
		}
		select {
		case sub.queue <- ev:
			sent++
		default:
			slow = append(slow, sub)
		}
	}
	t.mu.RUnlock()

	// Cleanup is done outside the RLock.
	for _, sub := range slow {
		switch b.policy.OnBackPressure(ev.SessionCode, sub.id) {
		case app.DropSubscription:
			log.Warn().Str("module", "app.broadcast").Str("code", string(ev.SessionCode)).Str("sub", sub.id).
				Uint64("version", ev.SnapshotVersion).Msg("subscriber queue full, dropping subscription")
			b.remove(sub)
		case app.SkipEvent:
			log.Warn().Str("module", "app.broadcast").Str("code", string(ev.SessionCode)).Str("sub", sub.id).
				Uint64("version", ev.SnapshotVersion).Msg("subscriber queue full, skipping event")
		}
	}
	log.Debug().Str("module", "app.broadcast").Str("code", string(ev.SessionCode)).Str("kind", string(ev.Kind)).
		Uint64("version", ev.SnapshotVersion).Int("sent_to", sent).Int("slow", len(slow)).Msg("publish result")
	return sent
}

// CloseTopic ends every subscription of code after its queued events have
// been delivered.
func (b *Broadcaster) CloseTopic(code domain.SessionCode) {
	b.mu.Lock()
	t, ok := b.topics[code]
	if ok {
		delete(b.topics, code)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	t.closed = true
	for id, sub := range t.subs {
		sub.closeQueue()
		delete(t.subs, id)
	}
	t.mu.Unlock()
	log.Info().Str("module", "app.broadcast").Str("code", string(code)).Msg("topic closed")
}

// Prune closes topics whose session is gone.
func (b *Broadcaster) Prune(alive func(domain.SessionCode) bool) int {
	b.mu.RLock()
	codes := make([]domain.SessionCode, 0, len(b.topics))
	for code := range b.topics {
		codes = append(codes, code)
	}
	b.mu.RUnlock()

	n := 0
	for _, code := range codes {
		if !alive(code) {
			b.CloseTopic(code)
			n++
		}
	}
	return n
}

func (b *Broadcaster) SubscriberCount(code domain.SessionCode) int {
	b.mu.RLock()
	t, ok := b.topics[code]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func (b *Broadcaster) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

// Close ends all topics; used on shutdown.
func (b *Broadcaster) Close() {
	b.Prune(func(domain.SessionCode) bool { return false })
}

func (b *Broadcaster) deliver(sub *Subscription) {
	defer close(sub.done)
	for {
		select {
		case <-sub.stop:
			return
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			select {
			case <-sub.stop:
				return
			default:
			}
			if err := sub.handler(ev); err != nil {
				err = fmt.Errorf("%w: %v", domain.ErrTransientDelivery, err)
				log.Warn().Err(err).Str("module", "app.broadcast").Str("code", string(sub.code)).Str("sub", sub.id).
					Uint64("version", ev.SnapshotVersion).Msg("delivery failed, dropping subscription")
				b.remove(sub)
				return
			}
		}
	}
}
