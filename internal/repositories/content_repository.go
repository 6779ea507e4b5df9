package repositories

import (
	"context"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ContentRepository defines the interface for content item operations.
type ContentRepository interface {
	Insert(ctx context.Context, item *models.ContentItem) error
	// InsertMany writes a fan-out batch. An empty batch is a successful no-op
	// (broadcast with zero friends).
	InsertMany(ctx context.Context, items []models.ContentItem) error
	GetByID(ctx context.Context, id string) (*models.ContentItem, error)
	// ListInbox returns non-consumed items addressed to recipient whose
	// expiry is still in the future at query time, newest first. Expiry is
	// filtered here as well as by the sweep: an item must never surface past
	// its expiry even when the sweep is behind.
	ListInbox(ctx context.Context, recipient, kind string, now time.Time) ([]models.ContentItem, error)
	// MarkConsumed flips consumed to true. One-way and idempotent; returns
	// NotFound when the document is already swept.
	MarkConsumed(ctx context.Context, id string) error
	// Delete removes an item document; absent is a no-op.
	Delete(ctx context.Context, id string) error
	// CountByMediaRef reports how many items still reference mediaRef.
	// Fan-out copies share one blob; the last deletion is the one that
	// unbinds it.
	CountByMediaRef(ctx context.Context, mediaRef string) (int64, error)
	// ListExpired returns a point-in-time snapshot of items past expiry. The
	// caller must not assume the set is stable while it works through it.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ContentItem, error)
	// DeleteAllForUser removes every item where uid is sender or recipient.
	DeleteAllForUser(ctx context.Context, uid string) (int64, error)
}

type mongoContentRepository struct {
	items *mongo.Collection
}

// NewMongoContentRepository creates a ContentRepository backed by the
// `content_items` collection.
func NewMongoContentRepository(db *mongo.Database) ContentRepository {
	return &mongoContentRepository{items: db.Collection("content_items")}
}

func (r *mongoContentRepository) Insert(ctx context.Context, item *models.ContentItem) error {
	_, err := r.items.InsertOne(ctx, item)
	return err
}

func (r *mongoContentRepository) InsertMany(ctx context.Context, items []models.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	_, err := r.items.InsertMany(ctx, docs)
	return err
}

func (r *mongoContentRepository) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	var item models.ContentItem
	err := r.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("content item", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *mongoContentRepository) ListInbox(ctx context.Context, recipient, kind string, now time.Time) ([]models.ContentItem, error) {
	filter := bson.M{
		"recipient":  recipient,
		"consumed":   false,
		"expires_at": bson.M{"$gt": now},
	}
	if kind != "" {
		filter["kind"] = kind
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.ContentItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *mongoContentRepository) MarkConsumed(ctx context.Context, id string) error {
	result, err := r.items.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"consumed": true}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("content item", id)
	}
	return nil
}

func (r *mongoContentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.items.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *mongoContentRepository) CountByMediaRef(ctx context.Context, mediaRef string) (int64, error) {
	return r.items.CountDocuments(ctx, bson.M{"media_ref": mediaRef})
}

func (r *mongoContentRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ContentItem, error) {
	filter := bson.M{"expires_at": bson.M{"$lte": now}}
	opts := options.Find().SetLimit(int64(limit))
	cursor, err := r.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.ContentItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *mongoContentRepository) DeleteAllForUser(ctx context.Context, uid string) (int64, error) {
	filter := bson.M{"$or": bson.A{bson.M{"sender": uid}, bson.M{"recipient": uid}}}
	result, err := r.items.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
