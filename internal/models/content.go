package models

import "time"

// Content kinds. They share one entity and one lifecycle; the kind only picks
// the default addressing mode and the storage category of the bound media.
const (
	KindSnap   = "snap"
	KindTip    = "tip"
	KindSignal = "signal"
	KindStory  = "story"
)

// DefaultTTL is stamped onto every item at creation. Expiry is never computed
// lazily at read time.
const DefaultTTL = 24 * time.Hour

// ContentItem is one document in the `content_items` collection. Broadcast and
// group sends are materialized at write time into one item per recipient, so
// every stored item has a concrete recipient and the inbox is a single
// equality query.
type ContentItem struct {
	ID         string    `json:"id" bson:"_id"`
	Sender     string    `json:"sender" bson:"sender"`
	Recipient  string    `json:"recipient" bson:"recipient"`
	Kind       string    `json:"kind" bson:"kind"`
	Broadcast  bool      `json:"broadcast" bson:"broadcast"`
	GroupID    string    `json:"group_id,omitempty" bson:"group_id,omitempty"`
	MediaRef   string    `json:"media_ref" bson:"media_ref"`
	Annotation string    `json:"annotation,omitempty" bson:"annotation,omitempty"`
	Symbol     string    `json:"symbol,omitempty" bson:"symbol,omitempty"`
	Consumed   bool      `json:"consumed" bson:"consumed"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"`
}

// ValidKind reports whether kind is one of the four content kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindSnap, KindTip, KindSignal, KindStory:
		return true
	}
	return false
}

// BroadcastByDefault reports whether a kind fans out to all friends when no
// recipient is named. Snaps and tips are direct; signals and stories broadcast.
func BroadcastByDefault(kind string) bool {
	return kind == KindSignal || kind == KindStory
}

// CreateContentRequest is the body of POST /content. Exactly one addressing
// mode applies: a named recipient, a group, or neither (broadcast to friends).
type CreateContentRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=snap tip signal story"`
	Recipient  string `json:"recipient,omitempty"`
	GroupID    string `json:"group_id,omitempty"`
	MediaRef   string `json:"media_ref" validate:"required"`
	Annotation string `json:"annotation,omitempty" validate:"omitempty,max=240"`
	Symbol     string `json:"symbol,omitempty"`
}
