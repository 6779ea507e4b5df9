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

// CleanupJobRepository journals cleanup cascades. A job that stops short of
// Done is never dropped; its document is the handle a retry starts from.
type CleanupJobRepository interface {
	Insert(ctx context.Context, job *models.CleanupJob) error
	Update(ctx context.Context, job *models.CleanupJob) error
	GetByID(ctx context.Context, id string) (*models.CleanupJob, error)
	// FindOpenForSubject returns the most recent not-yet-done job for a
	// subject, so redelivered deletion events attach to the existing job
	// instead of journaling a duplicate.
	FindOpenForSubject(ctx context.Context, scope, subject string) (*models.CleanupJob, error)
	ListByState(ctx context.Context, state string, limit int) ([]models.CleanupJob, error)
}

type mongoCleanupJobRepository struct {
	jobs *mongo.Collection
}

// NewMongoCleanupJobRepository creates a CleanupJobRepository backed by the
// `cleanup_jobs` collection.
func NewMongoCleanupJobRepository(db *mongo.Database) CleanupJobRepository {
	return &mongoCleanupJobRepository{jobs: db.Collection("cleanup_jobs")}
}

func (r *mongoCleanupJobRepository) Insert(ctx context.Context, job *models.CleanupJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err := r.jobs.InsertOne(ctx, job)
	return err
}

func (r *mongoCleanupJobRepository) Update(ctx context.Context, job *models.CleanupJob) error {
	job.UpdatedAt = time.Now().UTC()
	result, err := r.jobs.ReplaceOne(ctx, bson.M{"_id": job.ID}, job)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("cleanup job", job.ID)
	}
	return nil
}

func (r *mongoCleanupJobRepository) GetByID(ctx context.Context, id string) (*models.CleanupJob, error) {
	var job models.CleanupJob
	err := r.jobs.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("cleanup job", id)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *mongoCleanupJobRepository) FindOpenForSubject(ctx context.Context, scope, subject string) (*models.CleanupJob, error) {
	filter := bson.M{
		"scope":   scope,
		"subject": subject,
		"state":   bson.M{"$ne": models.CleanupDone},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var job models.CleanupJob
	err := r.jobs.FindOne(ctx, filter, opts).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("cleanup job", subject)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *mongoCleanupJobRepository) ListByState(ctx context.Context, state string, limit int) ([]models.CleanupJob, error) {
	filter := bson.M{}
	if state != "" {
		filter["state"] = state
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.jobs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.CleanupJob
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}
