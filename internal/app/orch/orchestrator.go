package orch

import (
	"fmt"
	"time"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/broadcast"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMinPlayers    = 1
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Mirror receives every committed snapshot. Enqueue must not block.
type Mirror interface {
	Enqueue(s domain.Session)
}

type Options struct {
	MinPlayers int
	// MaxPlayers caps the roster; zero means no cap.
	MaxPlayers    int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// JoinLimit joins per client inside JoinInterval; zero disables it.
	JoinLimit    int
	JoinInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MinPlayers <= 0 {
		o.MinPlayers = DefaultMinPlayers
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.JoinInterval <= 0 {
		o.JoinInterval = time.Minute
	}
	return o
}

// Orchestrator is the lobby lifecycle manager. It validates requests, runs
// them as store mutations and publishes what the store committed.
type Orchestrator struct {
	Store    core.SessionStore
	Events   *broadcast.Broadcaster
	Registry *app.Registry
	Mirror   Mirror

	opts  Options
	joins *app.RateLimiter
}

func New(store core.SessionStore, events *broadcast.Broadcaster, registry *app.Registry, mirror Mirror, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	o := &Orchestrator{
		Store:    store,
		Events:   events,
		Registry: registry,
		Mirror:   mirror,
		opts:     opts,
		joins:    app.NewRateLimiter(opts.JoinLimit, opts.JoinInterval),
	}
	store.OnCommit(o.onCommit)
	store.OnCreate(o.onCreate)
	return o
}

func (o *Orchestrator) Options() Options { return o.opts }

// CheckJoinRate counts one join attempt for client.
func (o *Orchestrator) CheckJoinRate(client string) error {
	if !o.joins.Allow(client) {
		log.Warn().Str("module", "app.orch").Str("client", client).Msg("join rate limited")
		return fmt.Errorf("%w: too many join attempts, retry in %s", domain.ErrRateLimited, o.opts.JoinInterval)
	}
	return nil
}

// onCreate runs under the new session's lock, ahead of its first commit.
func (o *Orchestrator) onCreate(s domain.Session) {
	if o.Mirror != nil {
		o.Mirror.Enqueue(s)
	}
}

// onCommit runs under the session lock, in version order.
func (o *Orchestrator) onCommit(s domain.Session, ev domain.RosterEvent) {
	o.Events.Publish(ev)
	if o.Mirror != nil {
		o.Mirror.Enqueue(s)
	}
	if s.State == domain.StateClosed {
		o.Events.CloseTopic(s.Code)
		log.Info().Str("module", "app.orch").Str("code", string(s.Code)).Str("kind", string(ev.Kind)).
			Uint64("version", ev.SnapshotVersion).Msg("lobby closed")
	}
}
