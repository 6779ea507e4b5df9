package services

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/v4/messaging"
	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
)

// Pusher delivers one push notification to one device token.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

type fcmPusher struct {
	client *messaging.Client
}

// NewFCMPusher wraps the Firebase Cloud Messaging client as a Pusher.
func NewFCMPusher(client *messaging.Client) Pusher {
	return &fcmPusher{client: client}
}

func (p *fcmPusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := p.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	return err
}

// Notifier turns lifecycle events into pushes. Delivery is best-effort: a
// failed or impossible push (no device token) is logged and dropped, and
// never fails the operation that raised the event.
type Notifier struct {
	users  repositories.UserRepository
	pusher Pusher
	subs   []*events.Subscription
}

// NewNotifier creates a Notifier.
func NewNotifier(users repositories.UserRepository, pusher Pusher) *Notifier {
	return &Notifier{users: users, pusher: pusher}
}

// Start subscribes the notifier to the events it announces.
func (n *Notifier) Start(bus *events.Bus) {
	n.subs = append(n.subs,
		bus.Subscribe(events.KindFriendRequested, n.onFriendRequested),
		bus.Subscribe(events.KindFriendAccepted, n.onFriendAccepted),
		bus.Subscribe(events.KindContentDelivered, n.onContentDelivered),
	)
}

// Stop cancels every subscription.
func (n *Notifier) Stop() {
	for _, sub := range n.subs {
		sub.Cancel()
	}
	n.subs = nil
}

func (n *Notifier) onFriendRequested(ctx context.Context, e events.Event) {
	ev, ok := e.(events.FriendRequested)
	if !ok {
		return
	}
	requester, err := n.users.GetUserByUID(ctx, ev.Requester)
	if err != nil {
		log.Printf("notify friend request: %v", err)
		return
	}
	n.push(ctx, ev.Target, "New friend request",
		fmt.Sprintf("@%s wants to be your friend", requester.Username),
		map[string]string{"event": string(ev.Kind()), "pair_id": ev.PairID})
}

func (n *Notifier) onFriendAccepted(ctx context.Context, e events.Event) {
	ev, ok := e.(events.FriendAccepted)
	if !ok {
		return
	}
	accepter, err := n.users.GetUserByUID(ctx, ev.Accepter)
	if err != nil {
		log.Printf("notify friend accepted: %v", err)
		return
	}
	n.push(ctx, ev.Requester, "Friend request accepted",
		fmt.Sprintf("@%s accepted your friend request", accepter.Username),
		map[string]string{"event": string(ev.Kind()), "pair_id": ev.PairID})
}

func (n *Notifier) onContentDelivered(ctx context.Context, e events.Event) {
	ev, ok := e.(events.ContentDelivered)
	if !ok {
		return
	}
	sender, err := n.users.GetUserByUID(ctx, ev.Sender)
	if err != nil {
		log.Printf("notify content delivered: %v", err)
		return
	}
	n.push(ctx, ev.Recipient, fmt.Sprintf("New %s", ev.ItemKind),
		fmt.Sprintf("@%s sent you a %s", sender.Username, ev.ItemKind),
		map[string]string{"event": string(ev.Kind()), "item_id": ev.ItemID, "kind": ev.ItemKind})
}

func (n *Notifier) push(ctx context.Context, uid, title, body string, data map[string]string) {
	user, err := n.users.GetUserByUID(ctx, uid)
	if err != nil {
		log.Printf("push to %s skipped: %v", uid, err)
		return
	}
	if user.DeviceToken == "" {
		return
	}
	if err := n.pusher.Push(ctx, user.DeviceToken, title, body, data); err != nil {
		log.Printf("push to %s failed: %v", uid, err)
	}
}
