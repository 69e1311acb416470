package orch

import (
	"fmt"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// CreateLobby opens a lobby with the host as its only member.
func (o *Orchestrator) CreateLobby(hostDisplayName string) (domain.Session, error) {
	_, sess, err := o.Store.Create(hostDisplayName)
	if err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("module", "app.orch").Str("code", string(sess.Code)).Str("host", sess.Members[0].DisplayName).Msg("lobby created")
	return sess, nil
}

// JoinLobby adds displayName to an Open lobby. Joining again under a name
// already on the roster returns the existing member and changes nothing.
func (o *Orchestrator) JoinLobby(code domain.SessionCode, displayName string) (domain.Session, domain.Member, error) {
	name, err := domain.NormalizeDisplayName(displayName)
	if err != nil {
		return domain.Session{}, domain.Member{}, err
	}

	var joined domain.Member
	sess, _, err := o.Store.MutateRoster(code, func(s *domain.Session) (domain.RosterEvent, error) {
		if s.State != domain.StateOpen {
			return domain.RosterEvent{}, invalidState(s, "join")
		}
		if m, ok := s.MemberByName(name); ok {
			joined = m
			return domain.RosterEvent{}, core.ErrUnchanged
		}
		if o.opts.MaxPlayers > 0 && len(s.Members) >= o.opts.MaxPlayers {
			return domain.RosterEvent{}, fmt.Errorf("%w: lobby %s is full", domain.ErrInvalidState, s.Code)
		}
		m, err := domain.NewMember(name)
		if err != nil {
			return domain.RosterEvent{}, err
		}
		s.Members = append(s.Members, m)
		joined = m
		return domain.RosterEvent{Kind: domain.EventJoined, MemberID: m.ID, DisplayName: m.DisplayName}, nil
	})
	if err != nil {
		return domain.Session{}, domain.Member{}, err
	}
	log.Info().Str("module", "app.orch").Str("code", string(code)).Str("member", string(joined.ID)).
		Str("name", joined.DisplayName).Uint64("version", sess.Version).Msg("joined lobby")
	return sess, joined, nil
}

// LeaveLobby removes a member. When the host leaves, the next member in join
// order takes the host seat; when nobody is left the lobby closes.
func (o *Orchestrator) LeaveLobby(code domain.SessionCode, memberID domain.MemberID) (domain.Session, error) {
	sess, _, err := o.Store.MutateRoster(code, func(s *domain.Session) (domain.RosterEvent, error) {
		if s.State == domain.StateClosed {
			return domain.RosterEvent{}, invalidState(s, "leave")
		}
		i := s.IndexOf(memberID)
		if i < 0 {
			return domain.RosterEvent{}, noMember(s, memberID)
		}
		left := s.Members[i]
		s.Members = append(s.Members[:i], s.Members[i+1:]...)
		ev := domain.RosterEvent{Kind: domain.EventLeft, MemberID: left.ID, DisplayName: left.DisplayName}
		if left.ID == s.HostMemberID && len(s.Members) > 0 {
			s.HostMemberID = s.Members[0].ID
			ev.HostMemberID = s.HostMemberID
		}
		return ev, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("module", "app.orch").Str("code", string(code)).Str("member", string(memberID)).
		Int("remaining", len(sess.Members)).Uint64("version", sess.Version).Msg("left lobby")
	return sess, nil
}

// LeaveLobbyByName resolves a member by display name, for clients that only
// know the name they joined with.
func (o *Orchestrator) LeaveLobbyByName(code domain.SessionCode, displayName string) (domain.Session, error) {
	name, err := domain.NormalizeDisplayName(displayName)
	if err != nil {
		return domain.Session{}, err
	}
	sess, err := o.Store.Get(code)
	if err != nil {
		return domain.Session{}, err
	}
	m, ok := sess.MemberByName(name)
	if !ok {
		return domain.Session{}, fmt.Errorf("%w %q in lobby %s", domain.ErrMemberNotFound, name, code)
	}
	return o.LeaveLobby(code, m.ID)
}
