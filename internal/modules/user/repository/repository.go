package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	// FindByIDsOrUsernames issues one query matching either set. Usernames
	// match case-insensitively.
	FindByIDsOrUsernames(ctx context.Context, ids []primitive.ObjectID, usernames []string) ([]entity.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*entity.User, error)
	Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// ProfileUpdate holds the fields to $set; nil fields are left untouched.
type ProfileUpdate struct {
	Username     *string
	Name         *string
	Bio          *string
	ProfileImage *string
	PasswordHash *string
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection(database.CollUsers)}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}

	res, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: email or username already registered", apperror.ErrConflict)
		}
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*entity.User, error) {
	var user entity.User
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&user); err != nil {
		return nil, database.TranslateError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	name := strings.TrimPrefix(strings.TrimSpace(username), "@")
	return r.findOne(ctx, bson.M{"username": name}, options.FindOne().SetCollation(database.CaseInsensitive))
}

func (r *userRepository) FindByIDsOrUsernames(ctx context.Context, ids []primitive.ObjectID, usernames []string) ([]entity.User, error) {
	var or bson.A
	if len(ids) > 0 {
		or = append(or, bson.M{"_id": bson.M{"$in": ids}})
	}
	if len(usernames) > 0 {
		or = append(or, bson.M{"username": bson.M{"$in": usernames}})
	}
	if len(or) == 0 {
		return nil, nil
	}

	opts := options.Find().
		SetCollation(database.CaseInsensitive).
		SetProjection(bson.M{"username": 1, "name": 1, "profileImage": 1})

	cursor, err := r.coll.Find(ctx, bson.M{"$or": or}, opts)
	if err != nil {
		return nil, err
	}
	var users []entity.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*entity.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.ProfileImage != nil {
		set["profileImage"] = *update.ProfileImage
	}
	if update.PasswordHash != nil {
		set["password"] = *update.PasswordHash
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user entity.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: username already taken", apperror.ErrConflict)
		}
		return nil, database.TranslateError(err)
	}
	return &user, nil
}

func (r *userRepository) Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) error {
	return r.setFollow(ctx, followerID, followeeID, "$addToSet")
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) error {
	return r.setFollow(ctx, followerID, followeeID, "$pull")
}

func (r *userRepository) setFollow(ctx context.Context, followerID, followeeID primitive.ObjectID, op string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": followeeID}, bson.M{op: bson.M{"followers": followerID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %w", apperror.ErrNotFound)
	}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": followerID}, bson.M{op: bson.M{"following": followeeID}}); err != nil {
		return err
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.EstimatedDocumentCount(ctx)
}
