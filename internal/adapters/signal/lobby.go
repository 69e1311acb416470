package signal

import (
	"encoding/json"

	"github.com/dkeye/Lobby/internal/app/broadcast"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleSubscribe attaches the connection to the lobby feed, then sends the
// snapshot. Events queued meanwhile carry versions the client can order
// against it.
func (ctl *SignalWSController) handleSubscribe(cl *client, data []byte) {
	var p sessionMsg
	if err := json.Unmarshal(data, &p); err != nil || p.SessionCode == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad subscribe payload")
		ctl.sendBadPayload(cl)
		return
	}
	sub, err := ctl.Orch.SubscribeConn(cl.id, p.SessionCode, func(ev domain.RosterEvent) error {
		return ctl.sendJSON(cl.conn, rosterEventMsg{Type: TypeRosterEvent, Event: ev})
	})
	if err != nil {
		ctl.sendError(cl, err)
		return
	}
	go ctl.watchSubscription(cl, sub)
	log.Info().Str("module", "signal").Str("sid", string(cl.id)).Str("code", string(p.SessionCode)).Msg("subscribe")
	ctl.sendJSON(cl.conn, sessionMsg{Type: TypeSubscribed, SessionCode: p.SessionCode})
	ctl.sendSnapshot(cl, p.SessionCode)
}

func (ctl *SignalWSController) handleUnsubscribe(cl *client, data []byte) {
	var p sessionMsg
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendBadPayload(cl)
		return
	}
	released := ctl.Orch.UnsubscribeConn(cl.id, p.SessionCode)
	log.Info().Str("module", "signal").Str("sid", string(cl.id)).Str("code", string(p.SessionCode)).
		Bool("released", released).Msg("unsubscribe")
	if released {
		ctl.sendJSON(cl.conn, unsubscribedMsg{Type: TypeUnsubscribed, SessionCode: p.SessionCode, Reason: ReasonRequested})
	}
}

// watchSubscription tells the client when the server ended its feed. A
// client that cannot even be told is kicked, so it reconnects and resyncs.
func (ctl *SignalWSController) watchSubscription(cl *client, sub *broadcast.Subscription) {
	<-sub.Done()
	if !ctl.Orch.ReleaseConnSubscription(cl.id, sub) {
		return
	}
	reason := ReasonClosed
	if sub.State() == broadcast.SubDropped {
		reason = ReasonDropped
	}
	log.Warn().Str("module", "signal").Str("sid", string(cl.id)).Str("code", string(sub.Code())).
		Str("reason", reason).Msg("subscription ended by server")
	err := ctl.sendJSON(cl.conn, unsubscribedMsg{Type: TypeUnsubscribed, SessionCode: sub.Code(), Reason: reason})
	if err != nil && reason == ReasonDropped {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.id)).Msg("kick lagging connection")
		ctl.Orch.Kick(cl.id)
	}
}

func (ctl *SignalWSController) handleSnapshot(cl *client, data []byte) {
	var p sessionMsg
	if err := json.Unmarshal(data, &p); err != nil || p.SessionCode == "" {
		ctl.sendBadPayload(cl)
		return
	}
	ctl.sendSnapshot(cl, p.SessionCode)
}

func (ctl *SignalWSController) sendSnapshot(cl *client, code domain.SessionCode) {
	sess, version, err := ctl.Orch.Snapshot(code)
	if err != nil {
		ctl.sendError(cl, err)
		return
	}
	ctl.sendJSON(cl.conn, snapshotMsg{Type: TypeSnapshot, Session: sess.View(), Version: version})
}

// handlePlayers carries join and leave intents. The roster change itself
// reaches every subscriber, this connection included, as a roster_event.
func (ctl *SignalWSController) handlePlayers(cl *client, data []byte) {
	var p playersMsg
	if err := json.Unmarshal(data, &p); err != nil || p.SessionCode == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad players payload")
		ctl.sendBadPayload(cl)
		return
	}

	if p.Joined {
		if err := ctl.Orch.CheckJoinRate(cl.token); err != nil {
			ctl.sendError(cl, err)
			return
		}
		sess, m, err := ctl.Orch.JoinAs(cl.id, p.SessionCode, p.DeviceName)
		if err != nil {
			ctl.sendError(cl, err)
			return
		}
		log.Info().Str("module", "signal").Str("sid", string(cl.id)).Str("code", string(p.SessionCode)).
			Str("member", string(m.ID)).Msg("join")
		ctl.sendJSON(cl.conn, joinedMsg{Type: TypeJoined, SessionCode: p.SessionCode, Member: m, Version: sess.Version})
		return
	}

	sess, err := ctl.Orch.LeaveAs(cl.id, p.SessionCode, p.DeviceName)
	if err != nil {
		ctl.sendError(cl, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(cl.id)).Str("code", string(p.SessionCode)).Msg("leave")
	ctl.sendJSON(cl.conn, leftMsg{Type: TypeLeft, SessionCode: p.SessionCode, Version: sess.Version})
}
