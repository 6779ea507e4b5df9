package services

import (
	"context"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
	"github.com/google/uuid"
)

// GroupService manages member sets for multi-party sends. Groups share the
// lifecycle discipline of the rest of the system: a mutation that would leave
// zero members deletes the group instead.
type GroupService struct {
	groups repositories.GroupRepository
	users  repositories.UserRepository
}

// NewGroupService creates a GroupService.
func NewGroupService(groups repositories.GroupRepository, users repositories.UserRepository) *GroupService {
	return &GroupService{groups: groups, users: users}
}

// Create makes a group containing the creator plus the requested members,
// deduplicated. Unknown member uids fail the whole call.
func (s *GroupService) Create(ctx context.Context, creator, name string, members []string) (*models.Group, error) {
	seen := map[string]bool{creator: true}
	all := []string{creator}
	for _, uid := range members {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		all = append(all, uid)
	}

	if len(all) > 1 {
		found, err := s.users.GetUsersByUIDs(ctx, all)
		if err != nil {
			return nil, err
		}
		if len(found) != len(all) {
			foundSet := make(map[string]bool, len(found))
			for i := range found {
				foundSet[found[i].UID] = true
			}
			for _, uid := range all {
				if !foundSet[uid] {
					return nil, apperror.NotFound("user", uid)
				}
			}
		}
	}

	now := time.Now().UTC()
	group := &models.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Members:   all,
		CreatedBy: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// AddMember adds uid to the group. Only current members may add; adding an
// existing member is a no-op.
func (s *GroupService) AddMember(ctx context.Context, actor, groupID, uid string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(actor) {
		return apperror.InvalidOperation("only group members can add members")
	}
	if _, err := s.users.GetUserByUID(ctx, uid); err != nil {
		return err
	}
	return s.groups.AddMember(ctx, groupID, uid)
}

// RemoveMember removes uid from the group. Any member may remove; removing a
// non-member is a no-op, and removing the last member deletes the group.
func (s *GroupService) RemoveMember(ctx context.Context, actor, groupID, uid string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(actor) {
		return apperror.InvalidOperation("only group members can remove members")
	}
	return s.groups.RemoveMember(ctx, groupID, uid)
}

// ListForUser returns the groups uid belongs to.
func (s *GroupService) ListForUser(ctx context.Context, uid string) ([]models.Group, error) {
	return s.groups.ListForUser(ctx, uid)
}
