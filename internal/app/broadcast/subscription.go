package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/Lobby/internal/domain"
)

// Handler receives events of one session, one at a time, in version order.
// A returned error means the owning connection is gone.
type Handler func(domain.RosterEvent) error

type SubState int32

const (
	SubActive SubState = iota
	SubDraining
	SubDropped
)

// Subscription is one subscriber's view of a topic. It owns a bounded queue
// drained by its own goroutine.
type Subscription struct {
	id      string
	code    domain.SessionCode
	handler Handler

	queue chan domain.RosterEvent
	stop  chan struct{}
	done  chan struct{}
	state atomic.Int32 // Zero by default (SubActive)

	closeOnce sync.Once
	stopOnce  sync.Once
}

func (s *Subscription) ID() string               { return s.id }
func (s *Subscription) Code() domain.SessionCode { return s.code }

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) State() SubState { return SubState(s.state.Load()) }

// closeQueue lets the goroutine drain what is queued and exit.
// Caller holds the topic lock.
func (s *Subscription) closeQueue() {
	s.closeOnce.Do(func() {
		s.state.CompareAndSwap(int32(SubActive), int32(SubDraining))
		close(s.queue)
	})
}

// abort stops delivery without draining. Caller holds the topic lock, or
// the topic is already closed.
func (s *Subscription) abort() {
	s.state.Store(int32(SubDropped))
	s.stopOnce.Do(func() { close(s.stop) })
	s.closeQueue()
}
