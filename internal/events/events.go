// Package events carries lifecycle notifications between the policy services
// and their consumers (the notifier, the cleanup orchestrator).
//
// Each event kind is a closed struct variant rather than a loose bag of
// fields, so consumers switch on concrete types instead of duck-typing a
// "type" field. Subscriptions are explicit handles owned by the subscriber;
// there is no package-level registry to tear down.
package events

import (
	"context"
	"sync"
)

// Kind names an event variant on the bus.
type Kind string

const (
	KindFriendRequested  Kind = "friend.requested"
	KindFriendAccepted   Kind = "friend.accepted"
	KindContentDelivered Kind = "content.delivered"
	KindAccountDeleted   Kind = "account.deleted"
)

// Event is implemented by every variant below.
type Event interface {
	Kind() Kind
}

// FriendRequested fires once when a pending relationship is created.
type FriendRequested struct {
	PairID    string
	Requester string
	Target    string
}

func (FriendRequested) Kind() Kind { return KindFriendRequested }

// FriendAccepted fires once when a pending relationship transitions to
// accepted.
type FriendAccepted struct {
	PairID    string
	Requester string
	Accepter  string
}

func (FriendAccepted) Kind() Kind { return KindFriendAccepted }

// ContentDelivered fires once per materialized content item, including each
// item of a fan-out.
type ContentDelivered struct {
	ItemID    string
	Sender    string
	Recipient string
	ItemKind  string
}

func (ContentDelivered) Kind() Kind { return KindContentDelivered }

// AccountDeleted fires when an account deletion has been requested. Username
// is captured while the profile document still exists.
type AccountDeleted struct {
	UID      string
	Username string
}

func (AccountDeleted) Kind() Kind { return KindAccountDeleted }

// Handler consumes one event. Delivery is at-least-once from the handler's
// point of view, so handlers must be idempotent.
type Handler func(ctx context.Context, e Event)

// Bus fans events out to subscribers. The zero value is not usable; construct
// with NewBus and hand the instance to whoever needs to publish or subscribe.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Kind]map[int]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind]map[int]Handler)}
}

// Subscription is the cancellation handle returned by Subscribe. Cancel is
// idempotent and removes the handler deterministically.
type Subscription struct {
	bus  *Bus
	kind Kind
	id   int
}

// Cancel removes the subscription from the bus.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if handlers, ok := s.bus.subs[s.kind]; ok {
		delete(handlers, s.id)
	}
	s.bus = nil
}

// Subscribe registers a handler for one event kind and returns its handle.
func (b *Bus) Subscribe(kind Kind, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	b.subs[kind][b.nextID] = h
	return &Subscription{bus: b, kind: kind, id: b.nextID}
}

// Publish dispatches e to every subscriber of its kind, each on its own
// goroutine. The handler context is detached from the caller's cancellation
// so an HTTP request finishing does not abort a cleanup cascade mid-flight.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Kind()]))
	for _, h := range b.subs[e.Kind()] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, h := range handlers {
		go h(detached, e)
	}
}
