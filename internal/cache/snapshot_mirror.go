package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTTL    = 10 * time.Minute
	defaultQueue  = 256
	writeDeadline = 2 * time.Second
)

// storeIfNewer writes the snapshot only when its version is above the one
// already mirrored, so out-of-order writes never roll a lobby back.
var storeIfNewer = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'v') or '0')
if tonumber(ARGV[1]) <= cur then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func Key(code domain.SessionCode) string {
	return "lobby:" + string(code)
}

// SnapshotMirror copies committed snapshots into Redis for readers outside
// this process. Writes happen on one worker goroutine fed by Enqueue.
type SnapshotMirror struct {
	client *redis.Client
	ttl    time.Duration
	queue  chan domain.Session
}

func NewSnapshotMirror(client *redis.Client, ttl time.Duration) *SnapshotMirror {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotMirror{
		client: client,
		ttl:    ttl,
		queue:  make(chan domain.Session, defaultQueue),
	}
}

// Enqueue never blocks. A dropped snapshot is superseded by the next one of
// the same lobby.
func (m *SnapshotMirror) Enqueue(s domain.Session) {
	select {
	case m.queue <- s:
	default:
		log.Warn().Str("module", "cache.mirror").Str("code", string(s.Code)).
			Uint64("version", s.Version).Msg("mirror queue full, snapshot dropped")
	}
}

// Run drains the queue until ctx is done.
func (m *SnapshotMirror) Run(ctx context.Context) error {
	log.Info().Str("module", "cache.mirror").Dur("ttl", m.ttl).Msg("snapshot mirror started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "cache.mirror").Msg("snapshot mirror stopped")
			return nil
		case s := <-m.queue:
			wctx, cancel := context.WithTimeout(ctx, writeDeadline)
			if err := m.Write(wctx, s); err != nil {
				log.Warn().Err(err).Str("module", "cache.mirror").Str("code", string(s.Code)).
					Uint64("version", s.Version).Msg("mirror write failed")
			}
			cancel()
		}
	}
}

// Write stores s, or deletes the key once the lobby is closed.
func (m *SnapshotMirror) Write(ctx context.Context, s domain.Session) error {
	if s.State == domain.StateClosed {
		return m.client.Del(ctx, Key(s.Code)).Err()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return storeIfNewer.Run(ctx, m.client, []string{Key(s.Code)},
		strconv.FormatUint(s.Version, 10), data, m.ttl.Milliseconds()).Err()
}

// Get reads the mirrored snapshot of code.
func (m *SnapshotMirror) Get(ctx context.Context, code domain.SessionCode) (domain.Session, error) {
	data, err := m.client.HGet(ctx, Key(code), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, fmt.Errorf("%w %q", domain.ErrSessionNotFound, code)
	}
	if err != nil {
		return domain.Session{}, err
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// Dial connects to addr and checks the server answers.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}
