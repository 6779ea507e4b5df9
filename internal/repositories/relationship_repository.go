package repositories

import (
	"context"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// RelationshipRepository defines the interface for friendship data operations.
// The canonical pair key is the document id, so concurrent requests for the
// same unordered pair collide on _id instead of creating duplicates.
type RelationshipRepository interface {
	Create(ctx context.Context, rel *models.Relationship) error
	GetByPairID(ctx context.Context, pairID string) (*models.Relationship, error)
	// Accept transitions pending to accepted. Returns NotFound when the
	// document is gone or no longer pending (lost race).
	Accept(ctx context.Context, pairID string, acceptedAt time.Time) error
	// Delete removes a relationship in any state; absent is a no-op.
	Delete(ctx context.Context, pairID string) error
	ListAcceptedByUser(ctx context.Context, uid string) ([]models.Relationship, error)
	ListPendingFor(ctx context.Context, uid string) ([]models.Relationship, error)
	// DeleteAllForUser removes every relationship referencing uid, regardless
	// of state. Used by the account cascade.
	DeleteAllForUser(ctx context.Context, uid string) (int64, error)
}

type mongoRelationshipRepository struct {
	relationships *mongo.Collection
}

// NewMongoRelationshipRepository creates a RelationshipRepository backed by
// the `relationships` collection.
func NewMongoRelationshipRepository(db *mongo.Database) RelationshipRepository {
	return &mongoRelationshipRepository{relationships: db.Collection("relationships")}
}

func (r *mongoRelationshipRepository) Create(ctx context.Context, rel *models.Relationship) error {
	_, err := r.relationships.InsertOne(ctx, rel)
	if mongo.IsDuplicateKeyError(err) {
		return apperror.AlreadyExists("relationship", rel.PairID)
	}
	return err
}

func (r *mongoRelationshipRepository) GetByPairID(ctx context.Context, pairID string) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.relationships.FindOne(ctx, bson.M{"_id": pairID}).Decode(&rel)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("relationship", pairID)
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *mongoRelationshipRepository) Accept(ctx context.Context, pairID string, acceptedAt time.Time) error {
	result, err := r.relationships.UpdateOne(ctx,
		bson.M{"_id": pairID, "status": models.RelationshipPending},
		bson.M{"$set": bson.M{"status": models.RelationshipAccepted, "accepted_at": acceptedAt}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("pending relationship", pairID)
	}
	return nil
}

func (r *mongoRelationshipRepository) Delete(ctx context.Context, pairID string) error {
	_, err := r.relationships.DeleteOne(ctx, bson.M{"_id": pairID})
	return err
}

func pairFilter(uid string) bson.M {
	return bson.M{"$or": bson.A{bson.M{"user_a": uid}, bson.M{"user_b": uid}}}
}

func (r *mongoRelationshipRepository) ListAcceptedByUser(ctx context.Context, uid string) ([]models.Relationship, error) {
	filter := pairFilter(uid)
	filter["status"] = models.RelationshipAccepted
	return r.list(ctx, filter)
}

func (r *mongoRelationshipRepository) ListPendingFor(ctx context.Context, uid string) ([]models.Relationship, error) {
	filter := pairFilter(uid)
	filter["status"] = models.RelationshipPending
	filter["requester"] = bson.M{"$ne": uid}
	return r.list(ctx, filter)
}

func (r *mongoRelationshipRepository) list(ctx context.Context, filter bson.M) ([]models.Relationship, error) {
	cursor, err := r.relationships.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rels []models.Relationship
	if err = cursor.All(ctx, &rels); err != nil {
		return nil, err
	}
	return rels, nil
}

func (r *mongoRelationshipRepository) DeleteAllForUser(ctx context.Context, uid string) (int64, error) {
	result, err := r.relationships.DeleteMany(ctx, pairFilter(uid))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
