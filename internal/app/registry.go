package app

import (
	"context"
	"sync"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// connEntry is what one client connection holds: live subscriptions, keyed
// by session code, and the member it joined each session as.
type connEntry struct {
	subs   map[domain.SessionCode]subBinding
	joined map[domain.SessionCode]domain.MemberID
	cancel context.CancelFunc
}

type subBinding struct {
	id      string
	release func()
}

// Registry tracks client connections so a disconnect releases every handle
// the connection took. Memberships are remembered, not undone: a roster
// change outlives the connection that requested it.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.ConnID]*connEntry)}
}

func (r *Registry) entryLocked(cid core.ConnID) *connEntry {
	e, ok := r.conns[cid]
	if !ok {
		e = &connEntry{
			subs:   make(map[domain.SessionCode]subBinding),
			joined: make(map[domain.SessionCode]domain.MemberID),
		}
		r.conns[cid] = e
	}
	return e
}

func (r *Registry) Bind(cid core.ConnID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryLocked(cid).cancel = cancel
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Msg("bound connection")
}

// BindSubscription stores the release func of subscription id. A previous
// subscription of the same connection to the same code is released.
func (r *Registry) BindSubscription(cid core.ConnID, code domain.SessionCode, id string, release func()) {
	r.mu.Lock()
	e := r.entryLocked(cid)
	old := e.subs[code]
	e.subs[code] = subBinding{id: id, release: release}
	r.mu.Unlock()
	if old.release != nil {
		old.release()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Str("code", string(code)).Msg("bound subscription")
}

func (r *Registry) DropSubscription(cid core.ConnID, code domain.SessionCode) bool {
	r.mu.Lock()
	var release func()
	if e, ok := r.conns[cid]; ok {
		release = e.subs[code].release
		delete(e.subs, code)
	}
	r.mu.Unlock()
	if release == nil {
		return false
	}
	release()
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Str("code", string(code)).Msg("dropped subscription")
	return true
}

// ForgetSubscription unbinds subscription id if it is still the one bound
// for code. It reports false when the owner already released or replaced it.
func (r *Registry) ForgetSubscription(cid core.ConnID, code domain.SessionCode, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return false
	}
	if b, ok := e.subs[code]; !ok || b.id != id {
		return false
	}
	delete(e.subs, code)
	return true
}

func (r *Registry) RecordMembership(cid core.ConnID, code domain.SessionCode, id domain.MemberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryLocked(cid).joined[code] = id
}

func (r *Registry) MemberOf(cid core.ConnID, code domain.SessionCode) (domain.MemberID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok {
		return "", false
	}
	id, ok := e.joined[code]
	return id, ok
}

func (r *Registry) ForgetMembership(cid core.ConnID, code domain.SessionCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok {
		delete(e.joined, code)
	}
}

// Unbind forgets the connection and releases its subscriptions. It returns
// how many were released.
func (r *Registry) Unbind(cid core.ConnID) int {
	r.mu.Lock()
	e, ok := r.conns[cid]
	delete(r.conns, cid)
	r.mu.Unlock()
	if !ok {
		return 0
	}
	for _, b := range e.subs {
		b.release()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Int("released", len(e.subs)).Msg("unbind connection")
	return len(e.subs)
}

func (r *Registry) Cancel(cid core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Msg("canceled connection")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
