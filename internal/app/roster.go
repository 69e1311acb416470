package app

import (
	"slices"
	"sync"

	"github.com/dkeye/Lobby/internal/domain"
)

// RosterView is the receiving side of the subscribe-then-snapshot contract.
// Events that arrive before the snapshot are held back; afterwards only the
// next version is applied, stale ones are discarded and a jump asks for a
// resync.
type RosterView struct {
	mu      sync.Mutex
	synced  bool
	pending []domain.RosterEvent

	code    domain.SessionCode
	host    domain.MemberID
	state   domain.SessionState
	members []domain.Member
	version uint64
}

func NewRosterView() *RosterView { return &RosterView{} }

// Reset installs a snapshot and replays held-back events newer than it.
// It reports whether the replay found a gap.
func (v *RosterView) Reset(s domain.Session) (needResync bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.code = s.Code
	v.host = s.HostMemberID
	v.state = s.State
	v.members = slices.Clone(s.Members)
	v.version = s.Version
	v.synced = true

	pending := v.pending
	v.pending = nil
	slices.SortFunc(pending, func(a, b domain.RosterEvent) int {
		return compareVersion(a.SnapshotVersion, b.SnapshotVersion)
	})
	for _, ev := range pending {
		if _, resync := v.applyLocked(ev); resync {
			return true
		}
	}
	return false
}

func compareVersion(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Apply folds one live event into the view.
func (v *RosterView) Apply(ev domain.RosterEvent) (applied, needResync bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.synced {
		v.pending = append(v.pending, ev)
		return false, false
	}
	return v.applyLocked(ev)
}

func (v *RosterView) applyLocked(ev domain.RosterEvent) (bool, bool) {
	if ev.SnapshotVersion <= v.version {
		return false, false
	}
	if ev.SnapshotVersion > v.version+1 {
		v.synced = false
		return false, true
	}
	switch ev.Kind {
	case domain.EventJoined:
		v.members = append(v.members, domain.Member{ID: ev.MemberID, DisplayName: ev.DisplayName})
	case domain.EventLeft:
		v.members = slices.DeleteFunc(v.members, func(m domain.Member) bool { return m.ID == ev.MemberID })
		if len(v.members) == 0 {
			v.state = domain.StateClosed
		}
	case domain.EventGameStarted:
		v.state = domain.StateInProgress
	case domain.EventResultUpdated:
		if i := slices.IndexFunc(v.members, func(m domain.Member) bool { return m.ID == ev.MemberID }); i >= 0 {
			v.members[i].Score = ev.Score
			v.members[i].DonePlaying = ev.DonePlaying
		}
	case domain.EventClosed:
		v.state = domain.StateClosed
	}
	if ev.HostMemberID != "" {
		v.host = ev.HostMemberID
	}
	v.version = ev.SnapshotVersion
	return true, false
}

// Session returns the reconciled view.
func (v *RosterView) Session() domain.Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return domain.Session{
		Code:         v.code,
		HostMemberID: v.host,
		State:        v.state,
		Members:      slices.Clone(v.members),
		Version:      v.version,
	}
}
