package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// entry guards one session. removed flips once, under mu, when the session
// leaves the table; holders of a stale *entry must check it.
type entry struct {
	mu      sync.Mutex
	sess    *domain.Session
	removed bool
}

// storeImpl is a threadsafe in-memory session table.
// The table lock covers lookups, inserts and deletes only; roster work runs
// under the per-session lock.
type storeImpl struct {
	mu       sync.RWMutex
	sessions map[domain.SessionCode]*entry

	codes    CodeGenerator
	now      func() time.Time
	onCommit CommitFunc
	onCreate CreateFunc
}

type StoreOption func(*storeImpl)

func WithCodeGenerator(g CodeGenerator) StoreOption {
	return func(s *storeImpl) { s.codes = g }
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *storeImpl) { s.now = now }
}

func NewStore(opts ...StoreOption) SessionStore {
	s := &storeImpl{
		sessions: make(map[domain.SessionCode]*entry),
		codes:    RandomCodes(DefaultCodeLength),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *storeImpl) OnCommit(fn CommitFunc) { s.onCommit = fn }
func (s *storeImpl) OnCreate(fn CreateFunc) { s.onCreate = fn }

func notFound(code domain.SessionCode) error {
	return fmt.Errorf("%w %q", domain.ErrSessionNotFound, code)
}

func (s *storeImpl) lookup(code domain.SessionCode) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[code]
	return e, ok
}

func (s *storeImpl) Create(hostDisplayName string) (domain.SessionCode, domain.Session, error) {
	host, err := domain.NewMember(hostDisplayName)
	if err != nil {
		return "", domain.Session{}, err
	}
	now := s.now()
	sess := &domain.Session{
		HostMemberID: host.ID,
		State:        domain.StateOpen,
		Members:      []domain.Member{host},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The entry is locked before it becomes reachable, so the create
	// observer runs ahead of any commit on it. Nothing else can hold it yet.
	e := &entry{sess: sess}
	e.mu.Lock()
	defer e.mu.Unlock()

	code, err := s.insert(e)
	if err != nil {
		return "", domain.Session{}, err
	}
	log.Info().Str("module", "core.store").Str("code", string(code)).Str("host", string(host.ID)).Msg("session created")
	if s.onCreate != nil {
		s.onCreate(sess.Clone())
	}
	return code, sess.Clone(), nil
}

// insert picks a free code for e and adds it to the table.
func (s *storeImpl) insert(e *entry) (domain.SessionCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return "", err
		}
		if _, taken := s.sessions[code]; taken {
			log.Debug().Str("module", "core.store").Str("code", string(code)).Msg("code collision, retrying")
			continue
		}
		e.sess.Code = code
		s.sessions[code] = e
		return code, nil
	}
	return "", ErrCodeSpaceExhausted
}

func (s *storeImpl) Get(code domain.SessionCode) (domain.Session, error) {
	e, ok := s.lookup(code)
	if !ok {
		return domain.Session{}, notFound(code)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.Session{}, notFound(code)
	}
	return e.sess.Clone(), nil
}

// MutateRoster applies fn to a copy of the session and commits it only when
// fn succeeds. A session left without members, or moved to Closed by fn, is
// removed in the same critical section.
func (s *storeImpl) MutateRoster(code domain.SessionCode, fn Mutation) (domain.Session, uint64, error) {
	e, ok := s.lookup(code)
	if !ok {
		return domain.Session{}, 0, notFound(code)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.Session{}, 0, notFound(code)
	}

	work := e.sess.Clone()
	ev, err := fn(&work)
	if errors.Is(err, ErrUnchanged) {
		return e.sess.Clone(), e.sess.Version, nil
	}
	if err != nil {
		return domain.Session{}, 0, err
	}

	work.Code = code
	work.Version = e.sess.Version + 1
	work.UpdatedAt = s.now()
	if len(work.Members) == 0 {
		work.State = domain.StateClosed
	}
	ev.SessionCode = code
	ev.SnapshotVersion = work.Version
	*e.sess = work

	if work.State == domain.StateClosed {
		s.removeLocked(code, e)
	}
	if s.onCommit != nil {
		s.onCommit(work.Clone(), ev)
	}
	return work.Clone(), work.Version, nil
}

// removeLocked drops e from the table; e.mu must be held.
func (s *storeImpl) removeLocked(code domain.SessionCode, e *entry) {
	e.removed = true
	s.mu.Lock()
	if cur, ok := s.sessions[code]; ok && cur == e {
		delete(s.sessions, code)
	}
	s.mu.Unlock()
	log.Info().Str("module", "core.store").Str("code", string(code)).Msg("session removed")
}

func (s *storeImpl) Remove(code domain.SessionCode) {
	e, ok := s.lookup(code)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	s.removeLocked(code, e)
}

func (s *storeImpl) entries() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e)
	}
	return out
}

func (s *storeImpl) List() []LobbyInfo {
	out := make([]LobbyInfo, 0)
	for _, e := range s.entries() {
		e.mu.Lock()
		if !e.removed {
			out = append(out, LobbyInfo{
				Code:        e.sess.Code,
				State:       e.sess.State,
				MemberCount: len(e.sess.Members),
				Version:     e.sess.Version,
				UpdatedAt:   e.sess.UpdatedAt,
			})
		}
		e.mu.Unlock()
	}
	return out
}

// Idle lists Open sessions with no mutation for longer than threshold.
func (s *storeImpl) Idle(threshold time.Duration, now time.Time) []domain.SessionCode {
	var out []domain.SessionCode
	for _, e := range s.entries() {
		e.mu.Lock()
		if !e.removed && e.sess.State == domain.StateOpen && now.Sub(e.sess.UpdatedAt) > threshold {
			out = append(out, e.sess.Code)
		}
		e.mu.Unlock()
	}
	return out
}
