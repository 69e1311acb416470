// Package domain contains lobby entities without transport or locking logic.
package domain

import (
	"fmt"
	"slices"
	"time"
)

type (
	SessionCode  string
	SessionState string
)

const (
	StateOpen       SessionState = "Open"
	StateInProgress SessionState = "InProgress"
	StateClosed     SessionState = "Closed"
)

var ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)

// Session is one lobby. Members keep join order; the host is first until it
// leaves.
type Session struct {
	Code         SessionCode  `json:"code"`
	HostMemberID MemberID     `json:"hostMemberId"`
	State        SessionState `json:"state"`
	Members      []Member     `json:"members"`
	Version      uint64       `json:"version"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy safe to hand out of the store.
func (s *Session) Clone() Session {
	out := *s
	out.Members = slices.Clone(s.Members)
	return out
}

func (s Session) IndexOf(id MemberID) int {
	return slices.IndexFunc(s.Members, func(m Member) bool { return m.ID == id })
}

func (s Session) MemberByName(name string) (Member, bool) {
	i := slices.IndexFunc(s.Members, func(m Member) bool { return m.DisplayName == name })
	if i < 0 {
		return Member{}, false
	}
	return s.Members[i], true
}

func (s Session) Member(id MemberID) (Member, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return Member{}, false
	}
	return s.Members[i], true
}

// DisplayNames lists the roster in join order.
func (s Session) DisplayNames() []string {
	out := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		out = append(out, m.DisplayName)
	}
	return out
}

// MemberView is a read-only roster row for APIs.
type MemberView struct {
	Member
	Label  string `json:"label"`
	IsHost bool   `json:"isHost"`
}

// SessionView is what clients render: the roster with the host decorated.
type SessionView struct {
	Code         SessionCode  `json:"code"`
	HostMemberID MemberID     `json:"hostMemberId"`
	State        SessionState `json:"state"`
	Members      []MemberView `json:"members"`
	Version      uint64       `json:"version"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func (s Session) View() SessionView {
	members := make([]MemberView, 0, len(s.Members))
	for _, m := range s.Members {
		mv := MemberView{Member: m, Label: m.DisplayName}
		if m.ID == s.HostMemberID {
			mv.IsHost = true
			mv.Label += HostMarker
		}
		members = append(members, mv)
	}
	return SessionView{
		Code:         s.Code,
		HostMemberID: s.HostMemberID,
		State:        s.State,
		Members:      members,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
	}
}
