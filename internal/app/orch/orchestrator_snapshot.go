package orch

import (
	"github.com/dkeye/Lobby/internal/app/broadcast"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Snapshot returns the full session and its version, in any state.
// Clients subscribe first and then call Snapshot, discarding events whose
// version is not above the returned one.
func (o *Orchestrator) Snapshot(code domain.SessionCode) (domain.Session, uint64, error) {
	sess, err := o.Store.Get(code)
	if err != nil {
		return domain.Session{}, 0, err
	}
	return sess, sess.Version, nil
}

// Preview is the join screen read: it only serves Open lobbies.
func (o *Orchestrator) Preview(code domain.SessionCode) (domain.Session, error) {
	sess, err := o.Store.Get(code)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.State != domain.StateOpen {
		return sess, invalidState(&sess, "preview")
	}
	return sess, nil
}

func (o *Orchestrator) List() []core.LobbyInfo {
	return o.Store.List()
}

// Subscribe attaches handler to the live event feed of an existing lobby.
// The lobby is checked after the topic exists: a close that lands before the
// check is caught here, one that lands after it ends the topic.
func (o *Orchestrator) Subscribe(code domain.SessionCode, handler broadcast.Handler) (*broadcast.Subscription, error) {
	sub := o.Events.Subscribe(code, handler)
	if _, err := o.Store.Get(code); err != nil {
		o.Events.Unsubscribe(sub)
		return nil, err
	}
	return sub, nil
}

func (o *Orchestrator) Unsubscribe(sub *broadcast.Subscription) {
	o.Events.Unsubscribe(sub)
}
