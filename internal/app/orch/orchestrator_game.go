package orch

import (
	"fmt"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// StartGame moves an Open lobby to InProgress. Only the host may do it.
func (o *Orchestrator) StartGame(code domain.SessionCode, requesterID domain.MemberID) (domain.Session, error) {
	sess, _, err := o.Store.MutateRoster(code, func(s *domain.Session) (domain.RosterEvent, error) {
		if requesterID != s.HostMemberID {
			return domain.RosterEvent{}, notHost(s, requesterID, "start the game")
		}
		if s.State != domain.StateOpen {
			return domain.RosterEvent{}, invalidState(s, "start")
		}
		if len(s.Members) < o.opts.MinPlayers {
			return domain.RosterEvent{}, fmt.Errorf("%w: lobby %s needs %d players, has %d",
				domain.ErrInvalidState, s.Code, o.opts.MinPlayers, len(s.Members))
		}
		s.State = domain.StateInProgress
		return domain.RosterEvent{Kind: domain.EventGameStarted, MemberID: requesterID}, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("module", "app.orch").Str("code", string(code)).Int("players", len(sess.Members)).Msg("game started")
	return sess, nil
}

// RecordResult stores a member's score and done flag while the game runs.
func (o *Orchestrator) RecordResult(code domain.SessionCode, memberID domain.MemberID, score int, donePlaying bool) (domain.Member, error) {
	var out domain.Member
	_, _, err := o.Store.MutateRoster(code, func(s *domain.Session) (domain.RosterEvent, error) {
		if s.State != domain.StateInProgress {
			return domain.RosterEvent{}, invalidState(s, "record results for")
		}
		i := s.IndexOf(memberID)
		if i < 0 {
			return domain.RosterEvent{}, noMember(s, memberID)
		}
		m := &s.Members[i]
		if m.Score == score && m.DonePlaying == donePlaying {
			out = *m
			return domain.RosterEvent{}, core.ErrUnchanged
		}
		m.Score = score
		m.DonePlaying = donePlaying
		out = *m
		return domain.RosterEvent{
			Kind:        domain.EventResultUpdated,
			MemberID:    m.ID,
			DisplayName: m.DisplayName,
			Score:       score,
			DonePlaying: donePlaying,
		}, nil
	})
	if err != nil {
		return domain.Member{}, err
	}
	return out, nil
}

// EndGame tears down a running lobby on behalf of its host.
func (o *Orchestrator) EndGame(code domain.SessionCode, requesterID domain.MemberID) (domain.Session, error) {
	sess, _, err := o.Store.MutateRoster(code, func(s *domain.Session) (domain.RosterEvent, error) {
		if requesterID != s.HostMemberID {
			return domain.RosterEvent{}, notHost(s, requesterID, "end the game")
		}
		if s.State != domain.StateInProgress {
			return domain.RosterEvent{}, invalidState(s, "end")
		}
		s.State = domain.StateClosed
		return domain.RosterEvent{Kind: domain.EventClosed, MemberID: requesterID}, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("module", "app.orch").Str("code", string(code)).Msg("game ended")
	return sess, nil
}
