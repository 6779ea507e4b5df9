package models

import (
	"strings"
	"time"
)

// Relationship statuses. A declined request is deleted, not kept in a
// "rejected" state, so the pair key becomes claimable again.
const (
	RelationshipPending  = "pending"
	RelationshipAccepted = "accepted"
)

// Relationship is one document in the `relationships` collection representing
// a directed request that becomes an undirected friendship. The document id is
// the canonical pair key, so two users racing to request each other collide on
// the same _id instead of producing duplicates.
type Relationship struct {
	PairID     string    `json:"pair_id" bson:"_id"`
	UserA      string    `json:"user_a" bson:"user_a"` // lexicographically smaller UID
	UserB      string    `json:"user_b" bson:"user_b"`
	Requester  string    `json:"requester" bson:"requester"`
	Status     string    `json:"status" bson:"status"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	AcceptedAt time.Time `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
}

// PairKey canonicalizes an unordered UID pair into the relationship document
// id. Order-independent: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// NewRelationship builds a pending relationship for the given pair with the
// canonical ordering applied.
func NewRelationship(requester, target string) *Relationship {
	a, b := requester, target
	if a > b {
		a, b = b, a
	}
	return &Relationship{
		PairID:    a + ":" + b,
		UserA:     a,
		UserB:     b,
		Requester: requester,
		Status:    RelationshipPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Other returns the counterpart of uid in the pair, or "" when uid is not a
// member.
func (r *Relationship) Other(uid string) string {
	switch uid {
	case r.UserA:
		return r.UserB
	case r.UserB:
		return r.UserA
	}
	return ""
}

// Involves reports whether uid is either side of the pair.
func (r *Relationship) Involves(uid string) bool {
	return uid == r.UserA || uid == r.UserB
}

// SplitPairKey recovers the two UIDs from a canonical pair key.
func SplitPairKey(pairID string) (string, string, bool) {
	parts := strings.SplitN(pairID, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// CreateFriendRequest is the body of POST /friends/request. The target is
// addressed by username, matching how users find each other in the app.
type CreateFriendRequest struct {
	Username string `json:"username" validate:"required,min=3,max=24"`
}

// FriendRequestView decorates a pending relationship with the counterpart's
// profile for inbox rendering.
type FriendRequestView struct {
	PairID    string      `json:"pair_id"`
	Requester UserCompact `json:"requester"`
	CreatedAt time.Time   `json:"created_at"`
}
