package core

import (
	"errors"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
)

// ErrUnchanged is returned by a Mutation that decided not to touch the
// session. The store then keeps the version and emits nothing.
var ErrUnchanged = errors.New("session unchanged")

// Mutation changes a live session and describes the change. The store stamps
// SessionCode and SnapshotVersion on the returned event.
type Mutation func(s *domain.Session) (domain.RosterEvent, error)

// CommitFunc observes every committed change. It runs while the session is
// still locked, so calls for one session arrive in version order; it must
// not block.
type CommitFunc func(s domain.Session, ev domain.RosterEvent)

// CreateFunc observes a new session before any mutation of it can run.
type CreateFunc func(s domain.Session)

// LobbyInfo is a listing row.
type LobbyInfo struct {
	Code        domain.SessionCode  `json:"code"`
	State       domain.SessionState `json:"state"`
	MemberCount int                 `json:"memberCount"`
	Version     uint64              `json:"version"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// SessionStore is the single source of truth for active sessions.
// Mutations on one code are serialized; different codes never contend.
type SessionStore interface {
	Create(hostDisplayName string) (domain.SessionCode, domain.Session, error)
	Get(code domain.SessionCode) (domain.Session, error)
	MutateRoster(code domain.SessionCode, fn Mutation) (domain.Session, uint64, error)
	Remove(code domain.SessionCode)

	List() []LobbyInfo
	Idle(threshold time.Duration, now time.Time) []domain.SessionCode

	// OnCommit and OnCreate register observers; call them before serving.
	OnCommit(fn CommitFunc)
	OnCreate(fn CreateFunc)
}
