package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
)

func TestGroupCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(0)
	env.seedUser(t, "u1", "alice")
	env.seedUser(t, "u2", "bob")
	env.seedUser(t, "u3", "carol")

	t.Run("includes the creator and deduplicates members", func(t *testing.T) {
		group, err := env.groupService.Create(ctx, "u1", "trio", []string{"u2", "u2", "u1", "u3", ""})
		require.NoError(t, err)
		assert.Equal(t, "trio", group.Name)
		assert.Equal(t, "u1", group.CreatedBy)
		assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, group.Members)
	})

	t.Run("creator alone is a valid group", func(t *testing.T) {
		group, err := env.groupService.Create(ctx, "u1", "solo", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, group.Members)
	})

	t.Run("an unknown member fails the whole create", func(t *testing.T) {
		_, err := env.groupService.Create(ctx, "u1", "bad", []string{"u2", "ghost"})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestGroupMembership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(0)
	env.seedUser(t, "u1", "alice")
	env.seedUser(t, "u2", "bob")
	env.seedUser(t, "u3", "carol")
	env.seedUser(t, "u4", "dave")

	group, err := env.groupService.Create(ctx, "u1", "trio", []string{"u2"})
	require.NoError(t, err)

	t.Run("a member can add another user", func(t *testing.T) {
		require.NoError(t, env.groupService.AddMember(ctx, "u2", group.ID, "u3"))
		got, err := env.groups.GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, got.Members)
	})

	t.Run("adding an existing member is a no-op", func(t *testing.T) {
		require.NoError(t, env.groupService.AddMember(ctx, "u1", group.ID, "u3"))
		got, err := env.groups.GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.Len(t, got.Members, 3)
	})

	t.Run("a non-member cannot add", func(t *testing.T) {
		err := env.groupService.AddMember(ctx, "u4", group.ID, "u4")
		assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
	})

	t.Run("adding an unknown user fails", func(t *testing.T) {
		err := env.groupService.AddMember(ctx, "u1", group.ID, "ghost")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("a non-member cannot remove", func(t *testing.T) {
		err := env.groupService.RemoveMember(ctx, "u4", group.ID, "u1")
		assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
	})

	t.Run("members can leave", func(t *testing.T) {
		require.NoError(t, env.groupService.RemoveMember(ctx, "u3", group.ID, "u3"))
		require.NoError(t, env.groupService.RemoveMember(ctx, "u2", group.ID, "u2"))
		got, err := env.groups.GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, got.Members)
	})

	t.Run("removing the last member deletes the group", func(t *testing.T) {
		require.NoError(t, env.groupService.RemoveMember(ctx, "u1", group.ID, "u1"))
		_, err := env.groups.GetByID(ctx, group.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("mutating a missing group is not found", func(t *testing.T) {
		err := env.groupService.AddMember(ctx, "u1", "missing", "u2")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestGroupListForUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(0)
	env.seedUser(t, "u1", "alice")
	env.seedUser(t, "u2", "bob")

	_, err := env.groupService.Create(ctx, "u1", "one", []string{"u2"})
	require.NoError(t, err)
	_, err = env.groupService.Create(ctx, "u1", "two", nil)
	require.NoError(t, err)

	mine, err := env.groupService.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := env.groupService.ListForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
