package orch

import (
	"context"
	"time"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

// EvictIdle closes Open lobbies with no roster change for longer than the
// idle timeout and releases topics whose lobby is gone.
func (o *Orchestrator) EvictIdle(now time.Time) int {
	threshold := o.opts.IdleTimeout
	evicted := 0
	for _, code := range o.Store.Idle(threshold, now) {
		sess, _, err := o.Store.MutateRoster(code, func(s *domain.Session) (domain.RosterEvent, error) {
			// Re-check under the session lock; a join may have landed.
			if s.State != domain.StateOpen || now.Sub(s.UpdatedAt) <= threshold {
				return domain.RosterEvent{}, core.ErrUnchanged
			}
			s.State = domain.StateClosed
			return domain.RosterEvent{Kind: domain.EventClosed}, nil
		})
		if err != nil || sess.State != domain.StateClosed {
			continue
		}
		evicted++
		log.Info().Str("module", "app.orch").Str("code", string(code)).Dur("idle", threshold).Msg("evicted idle lobby")
	}
	pruned := o.Events.Prune(func(code domain.SessionCode) bool {
		_, err := o.Store.Get(code)
		return err == nil
	})
	o.joins.Forget()
	if evicted > 0 || pruned > 0 {
		log.Info().Str("module", "app.orch").Int("evicted", evicted).Int("pruned_topics", pruned).Msg("sweep done")
	}
	return evicted
}

// RunEvictor sweeps every SweepInterval until ctx is done.
func (o *Orchestrator) RunEvictor(ctx context.Context) error {
	ticker := time.NewTicker(o.opts.SweepInterval)
	defer ticker.Stop()
	log.Info().Str("module", "app.orch").Dur("interval", o.opts.SweepInterval).Dur("idle_timeout", o.opts.IdleTimeout).Msg("evictor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.orch").Msg("evictor stopped")
			return nil
		case now := <-ticker.C:
			o.EvictIdle(now)
		}
	}
}
