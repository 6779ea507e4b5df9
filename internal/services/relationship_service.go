package services

import (
	"context"
	"errors"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
)

// RelationshipService owns the friend graph. The relationships collection is
// the single source of truth; friend lists are always derived from it, never
// kept as a mutable array anywhere else.
type RelationshipService struct {
	relationships repositories.RelationshipRepository
	users         repositories.UserRepository
	bus           *events.Bus
}

// NewRelationshipService creates a RelationshipService.
func NewRelationshipService(relationships repositories.RelationshipRepository, users repositories.UserRepository, bus *events.Bus) *RelationshipService {
	return &RelationshipService{relationships: relationships, users: users, bus: bus}
}

// Request creates a pending relationship from initiator to the user holding
// targetUsername. The canonical pair key makes two users racing to request
// each other collide on AlreadyExists instead of producing two documents.
// Publishes FriendRequested once on success.
func (s *RelationshipService) Request(ctx context.Context, initiator, targetUsername string) (*models.Relationship, error) {
	target, err := s.users.GetUserByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target.UID == initiator {
		return nil, apperror.InvalidOperation("cannot send a friend request to yourself")
	}

	rel := models.NewRelationship(initiator, target.UID)
	if err := s.relationships.Create(ctx, rel); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.FriendRequested{
		PairID:    rel.PairID,
		Requester: initiator,
		Target:    target.UID,
	})
	return rel, nil
}

// Accept transitions a pending relationship to accepted. Only the
// non-requester may accept. The repository update is filtered on the pending
// status, so a concurrent accept or decline makes exactly one caller win and
// FriendAccepted fires once per transition.
func (s *RelationshipService) Accept(ctx context.Context, userID, pairID string) (*models.Relationship, error) {
	rel, err := s.relationships.GetByPairID(ctx, pairID)
	if err != nil {
		return nil, err
	}
	if !rel.Involves(userID) {
		return nil, apperror.NotFound("friend request", pairID)
	}
	if rel.Status != models.RelationshipPending {
		return nil, apperror.InvalidOperation("friend request is not pending")
	}
	if rel.Requester == userID {
		return nil, apperror.InvalidOperation("cannot accept your own friend request")
	}

	acceptedAt := time.Now().UTC()
	if err := s.relationships.Accept(ctx, pairID, acceptedAt); err != nil {
		return nil, err
	}
	rel.Status = models.RelationshipAccepted
	rel.AcceptedAt = acceptedAt

	s.bus.Publish(ctx, events.FriendAccepted{
		PairID:    pairID,
		Requester: rel.Requester,
		Accepter:  userID,
	})
	return rel, nil
}

// Remove deletes the relationship for the pair: a pending request is declined
// (or retracted by its requester), an accepted one is an unfriend. Either
// involved party may remove; the delete is idempotent under races.
func (s *RelationshipService) Remove(ctx context.Context, userID, pairID string) error {
	rel, err := s.relationships.GetByPairID(ctx, pairID)
	if err != nil {
		return err
	}
	if !rel.Involves(userID) {
		return apperror.NotFound("relationship", pairID)
	}
	return s.relationships.Delete(ctx, pairID)
}

// ListFriends returns the profiles paired with userID across accepted
// relationships, derived fresh on every call.
func (s *RelationshipService) ListFriends(ctx context.Context, userID string) ([]models.UserCompact, error) {
	uids, err := s.FriendUIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return []models.UserCompact{}, nil
	}

	friends, err := s.users.GetUsersByUIDs(ctx, uids)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserCompact, 0, len(friends))
	for i := range friends {
		out = append(out, friends[i].ToCompact())
	}
	return out, nil
}

// FriendUIDs returns the uids currently paired with userID in accepted
// relationships. Content fan-out snapshots this at write time.
func (s *RelationshipService) FriendUIDs(ctx context.Context, userID string) ([]string, error) {
	rels, err := s.relationships.ListAcceptedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(rels))
	for i := range rels {
		uids = append(uids, rels[i].Other(userID))
	}
	return uids, nil
}

// AreFriends reports whether the pair holds an accepted relationship.
func (s *RelationshipService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	rel, err := s.relationships.GetByPairID(ctx, models.PairKey(a, b))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rel.Status == models.RelationshipAccepted, nil
}

// ListPending returns the incoming pending requests for userID, decorated
// with each requester's profile.
func (s *RelationshipService) ListPending(ctx context.Context, userID string) ([]models.FriendRequestView, error) {
	rels, err := s.relationships.ListPendingFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return []models.FriendRequestView{}, nil
	}

	requesterIDs := make([]string, 0, len(rels))
	for i := range rels {
		requesterIDs = append(requesterIDs, rels[i].Requester)
	}
	requesters, err := s.users.GetUsersByUIDs(ctx, requesterIDs)
	if err != nil {
		return nil, err
	}
	byUID := make(map[string]models.UserCompact, len(requesters))
	for i := range requesters {
		byUID[requesters[i].UID] = requesters[i].ToCompact()
	}

	views := make([]models.FriendRequestView, 0, len(rels))
	for i := range rels {
		views = append(views, models.FriendRequestView{
			PairID:    rels[i].PairID,
			Requester: byUID[rels[i].Requester],
			CreatedAt: rels[i].CreatedAt,
		})
	}
	return views, nil
}
