package orch

import (
	"github.com/dkeye/Lobby/internal/app/broadcast"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// SubscribeConn subscribes on behalf of a client connection; the handle is
// released when the connection unbinds.
func (o *Orchestrator) SubscribeConn(cid core.ConnID, code domain.SessionCode, handler broadcast.Handler) (*broadcast.Subscription, error) {
	sub, err := o.Subscribe(code, handler)
	if err != nil {
		return nil, err
	}
	o.Registry.BindSubscription(cid, code, sub.ID(), func() { o.Events.Unsubscribe(sub) })
	return sub, nil
}

// ReleaseConnSubscription unbinds sub once its delivery has ended. It
// reports false when the connection had already released or replaced it,
// in which case the client asked for the end and needs no notice. A feed
// that drained because the lobby closed also ends the membership.
func (o *Orchestrator) ReleaseConnSubscription(cid core.ConnID, sub *broadcast.Subscription) bool {
	if !o.Registry.ForgetSubscription(cid, sub.Code(), sub.ID()) {
		return false
	}
	if sub.State() == broadcast.SubDraining {
		o.Registry.ForgetMembership(cid, sub.Code())
	}
	return true
}

// Kick cancels the connection's context, which closes its socket.
func (o *Orchestrator) Kick(cid core.ConnID) bool {
	return o.Registry.Cancel(cid)
}

func (o *Orchestrator) UnsubscribeConn(cid core.ConnID, code domain.SessionCode) bool {
	return o.Registry.DropSubscription(cid, code)
}

// JoinAs joins and remembers which member the connection became.
func (o *Orchestrator) JoinAs(cid core.ConnID, code domain.SessionCode, displayName string) (domain.Session, domain.Member, error) {
	sess, m, err := o.JoinLobby(code, displayName)
	if err != nil {
		return domain.Session{}, domain.Member{}, err
	}
	o.Registry.RecordMembership(cid, code, m.ID)
	return sess, m, nil
}

// LeaveAs leaves as the member the connection joined with, or by name when
// the connection never joined this lobby.
func (o *Orchestrator) LeaveAs(cid core.ConnID, code domain.SessionCode, displayName string) (domain.Session, error) {
	var (
		sess domain.Session
		err  error
	)
	if id, ok := o.Registry.MemberOf(cid, code); ok {
		sess, err = o.LeaveLobby(code, id)
	} else {
		sess, err = o.LeaveLobbyByName(code, displayName)
	}
	if err != nil {
		return domain.Session{}, err
	}
	o.Registry.ForgetMembership(cid, code)
	return sess, nil
}

// Disconnect releases everything a connection held. Roster membership is
// kept: the member stays until it leaves or the lobby is evicted.
func (o *Orchestrator) Disconnect(cid core.ConnID) {
	o.Registry.Unbind(cid)
}
