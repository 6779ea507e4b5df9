package repositories

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for profile and username-reservation
// operations.
type UserRepository interface {
	// CreateUserWithUsername inserts the profile and the username reservation
	// in one transaction: both documents land or neither does.
	CreateUserWithUsername(ctx context.Context, user *models.User) error
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByUIDs(ctx context.Context, uids []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	SearchUsers(ctx context.Context, prefix string, limit int) ([]models.User, error)
	// DeleteUser removes the profile document. Deleting an absent profile is
	// a no-op so cleanup retries stay safe.
	DeleteUser(ctx context.Context, uid string) error
	// ReleaseUsername frees the reservation. Idempotent for the same reason.
	ReleaseUsername(ctx context.Context, username string) error
}

type mongoUserRepository struct {
	users     *mongo.Collection
	usernames *mongo.Collection
}

// NewMongoUserRepository creates a UserRepository backed by the `users` and
// `usernames` collections.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		users:     db.Collection("users"),
		usernames: db.Collection("usernames"),
	}
}

func (r *mongoUserRepository) CreateUserWithUsername(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	reservation := models.UsernameReservation{
		Username:  strings.ToLower(user.Username),
		UID:       user.UID,
		ClaimedAt: now,
	}

	sess, err := r.users.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.usernames.InsertOne(sc, reservation); err != nil {
			return nil, err
		}
		if _, err := r.users.InsertOne(sc, user); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.AlreadyExists("username", user.Username)
		}
		return err
	}
	return nil
}

func (r *mongoUserRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("user", uid)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var reservation models.UsernameReservation
	err := r.usernames.FindOne(ctx, bson.M{"_id": strings.ToLower(username)}).Decode(&reservation)
	if err == mongo.ErrNoDocuments {
		return nil, apperror.NotFound("user", username)
	}
	if err != nil {
		return nil, err
	}
	return r.GetUserByUID(ctx, reservation.UID)
}

func (r *mongoUserRepository) GetUsersByUIDs(ctx context.Context, uids []string) ([]models.User, error) {
	if len(uids) == 0 {
		return []models.User{}, nil
	}
	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	result, err := r.users.UpdateOne(ctx, bson.M{"_id": user.UID}, bson.M{"$set": bson.M{
		"display_name": user.DisplayName,
		"avatar_ref":   user.AvatarRef,
		"device_token": user.DeviceToken,
		"updated_at":   user.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("user", user.UID)
	}
	return nil
}

func (r *mongoUserRepository) SearchUsers(ctx context.Context, prefix string, limit int) ([]models.User, error) {
	filter := bson.M{"username": bson.M{
		"$regex":   "^" + regexp.QuoteMeta(prefix),
		"$options": "i",
	}}
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}}).SetLimit(int64(limit))
	cursor, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoUserRepository) DeleteUser(ctx context.Context, uid string) error {
	_, err := r.users.DeleteOne(ctx, bson.M{"_id": uid})
	return err
}

func (r *mongoUserRepository) ReleaseUsername(ctx context.Context, username string) error {
	_, err := r.usernames.DeleteOne(ctx, bson.M{"_id": strings.ToLower(username)})
	return err
}
