package repositories

import (
	"context"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GroupRepository defines the interface for group membership operations. A
// group never persists with an empty member array: every mutation that could
// empty it deletes the emptied document instead.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id string) (*models.Group, error)
	AddMember(ctx context.Context, groupID, uid string) error
	// RemoveMember pulls uid from the member array and deletes the group when
	// the removal left it empty. Removing a non-member is a no-op.
	RemoveMember(ctx context.Context, groupID, uid string) error
	ListForUser(ctx context.Context, uid string) ([]models.Group, error)
	// RemoveUserFromAll prunes uid from every group and deletes groups that
	// became empty. Used by the account cascade; idempotent.
	RemoveUserFromAll(ctx context.Context, uid string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type mongoGroupRepository struct {
	groups *mongo.Collection
}

// NewMongoGroupRepository creates a GroupRepository backed by the `groups`
// collection.
func NewMongoGroupRepository(db *mongo.Database) GroupRepository {
	return &mongoGroupRepository{groups: db.Collection("groups")}
}

func (r *mongoGroupRepository) Create(ctx context.Context, group *models.Group) error {
	_, err := r.groups.InsertOne(ctx, group)
	return err
}

func (r *mongoGroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	err := r.groups.FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("group", id)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *mongoGroupRepository) AddMember(ctx context.Context, groupID, uid string) error {
	result, err := r.groups.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{
			"$addToSet": bson.M{"members": uid},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("group", groupID)
	}
	return nil
}

func (r *mongoGroupRepository) RemoveMember(ctx context.Context, groupID, uid string) error {
	result, err := r.groups.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{
			"$pull": bson.M{"members": uid},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("group", groupID)
	}
	// A group must not outlive its last member.
	_, err = r.groups.DeleteOne(ctx, bson.M{"_id": groupID, "members": bson.M{"$size": 0}})
	return err
}

func (r *mongoGroupRepository) ListForUser(ctx context.Context, uid string) ([]models.Group, error) {
	cursor, err := r.groups.Find(ctx, bson.M{"members": uid})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []models.Group
	if err = cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *mongoGroupRepository) RemoveUserFromAll(ctx context.Context, uid string) (int64, error) {
	result, err := r.groups.UpdateMany(ctx,
		bson.M{"members": uid},
		bson.M{
			"$pull": bson.M{"members": uid},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, err
	}
	if _, err := r.groups.DeleteMany(ctx, bson.M{"members": bson.M{"$size": 0}}); err != nil {
		return result.ModifiedCount, err
	}
	return result.ModifiedCount, nil
}

func (r *mongoGroupRepository) Delete(ctx context.Context, id string) error {
	_, err := r.groups.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
