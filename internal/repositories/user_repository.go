package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"geofriends-service/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByEmailAndToken(ctx context.Context, email, token string) (models.User, error)
	FindAdmin(ctx context.Context) (models.User, error)
	ListApproved(ctx context.Context) ([]models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	UpdateFields(ctx context.Context, userID string, fields map[string]any) error
	SetPresence(ctx context.Context, userID string, online bool, location *models.Location) error
	Delete(ctx context.Context, userID string) error
}

// UserRepo is a mongo implementation of UserRepository.
type UserRepo struct {
	coll *mongo.Collection
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(database *mongo.Database) *UserRepo {
	return &UserRepo{coll: database.Collection("users")}
}

// Create inserts a new user. The unique email index turns concurrent
// duplicate registrations into ErrDuplicateEmail.
func (r *UserRepo) Create(ctx context.Context, user models.User) error {
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID string) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByEmailAndToken matches both fields; verification tokens are single-use.
func (r *UserRepo) GetByEmailAndToken(ctx context.Context, email, token string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "verificationToken": token})
}

// FindAdmin returns the single admin record if one exists.
func (r *UserRepo) FindAdmin(ctx context.Context) (models.User, error) {
	return r.findOne(ctx, bson.M{"role": models.RoleAdmin})
}

// ListApproved returns all approved users.
func (r *UserRepo) ListApproved(ctx context.Context) ([]models.User, error) {
	return r.find(ctx, bson.M{"status": models.StatusApproved})
}

// ListAll returns every user record, newest first.
func (r *UserRepo) ListAll(ctx context.Context) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateFields merge-writes the given fields onto the user document.
func (r *UserRepo) UpdateFields(ctx context.Context, userID string, fields map[string]any) error {
	res, err := r.coll.UpdateByID(ctx, userID, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPresence writes the online flag and location in one update.
func (r *UserRepo) SetPresence(ctx context.Context, userID string, online bool, location *models.Location) error {
	update := bson.M{"online": online}
	if location != nil {
		update["location"] = location
	} else {
		update["location"] = nil
	}
	_, err := r.coll.UpdateByID(ctx, userID, bson.M{"$set": update})
	return err
}

// Delete removes the user record.
func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (r *UserRepo) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
