package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen []Event
}

func (r *recorder) handle(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus()
	first := &recorder{}
	second := &recorder{}
	bus.Subscribe(KindFriendRequested, first.handle)
	bus.Subscribe(KindFriendRequested, second.handle)

	bus.Publish(context.Background(), FriendRequested{PairID: "a:b", Requester: "a", Target: "b"})

	require.Eventually(t, func() bool {
		return first.count() == 1 && second.count() == 1
	}, time.Second, 5*time.Millisecond)

	first.mu.Lock()
	defer first.mu.Unlock()
	e, ok := first.seen[0].(FriendRequested)
	require.True(t, ok)
	assert.Equal(t, "a:b", e.PairID)
}

func TestBusRoutesByKind(t *testing.T) {
	bus := NewBus()
	accepted := &recorder{}
	bus.Subscribe(KindFriendAccepted, accepted.handle)

	bus.Publish(context.Background(), FriendRequested{PairID: "a:b"})
	bus.Publish(context.Background(), AccountDeleted{UID: "a"})

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, accepted.count(), "subscriber must only see its own kind")
}

func TestSubscriptionCancel(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	sub := bus.Subscribe(KindContentDelivered, rec.handle)

	bus.Publish(context.Background(), ContentDelivered{ItemID: "c1"})
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	sub.Cancel()
	bus.Publish(context.Background(), ContentDelivered{ItemID: "c2"})
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	t.Run("cancelling twice is safe", func(t *testing.T) {
		assert.NotPanics(t, sub.Cancel)
	})

	t.Run("cancelling one subscription leaves the others", func(t *testing.T) {
		kept := &recorder{}
		dropped := &recorder{}
		keptSub := bus.Subscribe(KindAccountDeleted, kept.handle)
		defer keptSub.Cancel()
		bus.Subscribe(KindAccountDeleted, dropped.handle).Cancel()

		bus.Publish(context.Background(), AccountDeleted{UID: "u1"})
		require.Eventually(t, func() bool { return kept.count() == 1 }, time.Second, 5*time.Millisecond)
		assert.Zero(t, dropped.count())
	})
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), FriendAccepted{PairID: "a:b"})
	})
}

func TestPublishDetachesFromCallerCancellation(t *testing.T) {
	bus := NewBus()
	got := make(chan error, 1)
	bus.Subscribe(KindAccountDeleted, func(ctx context.Context, _ Event) {
		got <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, AccountDeleted{UID: "u1"})

	select {
	case err := <-got:
		assert.NoError(t, err, "handler context must survive the publisher's cancellation")
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}
