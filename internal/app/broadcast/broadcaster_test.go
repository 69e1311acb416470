package broadcast

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/stretchr/testify/require"
)

const code = domain.SessionCode("ABC234")

type recorder struct {
	mu     sync.Mutex
	events []domain.RosterEvent
}

func (r *recorder) handle(ev domain.RosterEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) versions() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.SnapshotVersion)
	}
	return out
}

func event(v uint64) domain.RosterEvent {
	return domain.RosterEvent{SessionCode: code, Kind: domain.EventJoined, SnapshotVersion: v}
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not finish")
	}
}

func Test_Publish_Delivers_In_Order_To_Every_Subscriber(t *testing.T) {
	// Arrange
	b := New(nil, 16)
	var first, second recorder
	b.Subscribe(code, first.handle)
	b.Subscribe(code, second.handle)

	// Act
	for v := uint64(2); v <= 6; v++ {
		b.Publish(event(v))
	}

	// Assert
	want := []uint64{2, 3, 4, 5, 6}
	require.Eventually(t, func() bool { return len(first.versions()) == 5 && len(second.versions()) == 5 }, time.Second, 5*time.Millisecond)
	require.Equal(t, want, first.versions())
	require.Equal(t, want, second.versions())
}

func Test_Publish_Only_Reaches_Subscribers_Of_That_Session(t *testing.T) {
	b := New(nil, 4)
	var mine, other recorder
	b.Subscribe(code, mine.handle)
	b.Subscribe("ZZZ999", other.handle)

	b.Publish(event(2))

	require.Eventually(t, func() bool { return len(mine.versions()) == 1 }, time.Second, 5*time.Millisecond)
	require.Empty(t, other.versions())
}

func Test_Slow_Subscriber_Does_Not_Block_Others(t *testing.T) {
	// Arrange
	b := New(app.SimplePolicy{}, 8)
	release := make(chan struct{})
	slow := b.Subscribe(code, func(domain.RosterEvent) error {
		<-release
		return nil
	})
	var fast recorder
	b.Subscribe(code, fast.handle)

	// Act
	done := make(chan struct{})
	go func() {
		for v := uint64(2); v <= 30; v++ {
			b.Publish(event(v))
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()

	// Assert
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
	require.Eventually(t, func() bool { return len(fast.versions()) == 29 }, time.Second, 5*time.Millisecond)
	require.Equal(t, SubDropped, slow.State())
	require.Equal(t, 1, b.SubscriberCount(code))
	close(release)
	waitDone(t, slow)
}

func Test_Skip_Policy_Keeps_Slow_Subscriber(t *testing.T) {
	b := New(app.SkipPolicy{}, 1)
	release := make(chan struct{})
	var got recorder
	sub := b.Subscribe(code, func(ev domain.RosterEvent) error {
		<-release
		return got.handle(ev)
	})

	for v := uint64(2); v <= 10; v++ {
		b.Publish(event(v))
	}
	close(release)

	require.Eventually(t, func() bool { return len(got.versions()) >= 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, SubActive, sub.State())
	require.Less(t, len(got.versions()), 9)
}

func Test_Publish_Counts_Only_Queued_Sends(t *testing.T) {
	// Arrange
	b := New(app.SkipPolicy{}, 1)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var fast recorder
	b.Subscribe(code, fast.handle)
	slow := b.Subscribe(code, func(domain.RosterEvent) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	// Act
	first := b.Publish(event(2))
	<-started
	require.Eventually(t, func() bool { return len(fast.versions()) == 1 }, time.Second, time.Millisecond)
	second := b.Publish(event(3))
	require.Eventually(t, func() bool { return len(fast.versions()) == 2 }, time.Second, time.Millisecond)
	third := b.Publish(event(4))
	b.Unsubscribe(slow)
	close(release)
	waitDone(t, slow)
	require.Eventually(t, func() bool { return len(fast.versions()) == 3 }, time.Second, time.Millisecond)
	fourth := b.Publish(event(5))

	// Assert
	require.Equal(t, 2, first)
	require.Equal(t, 2, second)
	require.Equal(t, 1, third, "full queue under skip policy is not a send")
	require.Equal(t, 1, fourth)
	require.Zero(t, b.Publish(domain.RosterEvent{SessionCode: "ZZZZZZ"}))
}

func Test_TopicCount_Follows_Subscriptions(t *testing.T) {
	b := New(nil, 4)
	sub := b.Subscribe(code, func(domain.RosterEvent) error { return nil })
	other := b.Subscribe("XYZ234", func(domain.RosterEvent) error { return nil })
	require.Equal(t, 2, b.TopicCount())

	b.Unsubscribe(sub)
	b.CloseTopic("XYZ234")

	require.Zero(t, b.TopicCount())
	waitDone(t, sub)
	waitDone(t, other)
}

func Test_Failing_Handler_Drops_Only_Its_Subscription(t *testing.T) {
	// Arrange
	b := New(nil, 8)
	broken := b.Subscribe(code, func(domain.RosterEvent) error { return errors.New("socket closed") })
	var healthy recorder
	b.Subscribe(code, healthy.handle)

	// Act
	b.Publish(event(2))
	waitDone(t, broken)
	b.Publish(event(3))

	// Assert
	require.Eventually(t, func() bool { return len(healthy.versions()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, SubDropped, broken.State())
	require.Equal(t, 1, b.SubscriberCount(code))
}

func Test_Unsubscribe_Stops_Delivery(t *testing.T) {
	b := New(nil, 8)
	var got recorder
	sub := b.Subscribe(code, got.handle)

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	waitDone(t, sub)
	b.Publish(event(2))

	require.Empty(t, got.versions())
	require.Zero(t, b.SubscriberCount(code))
}

func Test_CloseTopic_Drains_Queued_Events(t *testing.T) {
	// Arrange
	b := New(nil, 8)
	gate := make(chan struct{})
	var got recorder
	sub := b.Subscribe(code, func(ev domain.RosterEvent) error {
		<-gate
		return got.handle(ev)
	})
	b.Publish(event(2))
	b.Publish(event(3))

	// Act
	b.CloseTopic(code)
	b.Publish(event(4))
	close(gate)

	// Assert
	waitDone(t, sub)
	require.Equal(t, []uint64{2, 3}, got.versions())
	require.Zero(t, b.SubscriberCount(code))
}

func Test_Subscribe_After_CloseTopic_Opens_Fresh_Topic(t *testing.T) {
	b := New(nil, 8)
	old := b.Subscribe(code, func(domain.RosterEvent) error { return nil })
	b.CloseTopic(code)
	waitDone(t, old)

	var got recorder
	b.Subscribe(code, got.handle)
	b.Publish(event(9))

	require.Eventually(t, func() bool { return len(got.versions()) == 1 }, time.Second, 5*time.Millisecond)
}

func Test_Prune_Closes_Topics_Of_Dead_Sessions(t *testing.T) {
	b := New(nil, 8)
	dead := b.Subscribe(code, func(domain.RosterEvent) error { return nil })
	b.Subscribe("LIVE22", func(domain.RosterEvent) error { return nil })

	n := b.Prune(func(c domain.SessionCode) bool { return c == "LIVE22" })

	require.Equal(t, 1, n)
	waitDone(t, dead)
	require.Equal(t, 1, b.SubscriberCount("LIVE22"))
}
