package profile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"anoa.com/storyverse/internal/entity"
	profileDto "anoa.com/storyverse/internal/modules/profile/dto"
	userDto "anoa.com/storyverse/internal/modules/user/dto"
	userRepo "anoa.com/storyverse/internal/modules/user/repository"
	user "anoa.com/storyverse/internal/modules/user/service"
	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const avatarFolder = "avatars"

type ProfileService interface {
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, input profileDto.UpdateProfileInput, avatar *profileDto.AvatarFile) (*profileDto.UpdateProfileResponse, error)
	GetProfileByUsername(ctx context.Context, username string, viewer *primitive.ObjectID) (*profileDto.PublicProfileResponse, error)
	GetCurrentProfile(ctx context.Context, userID primitive.ObjectID) (*userDto.UserResponse, error)
	Follow(ctx context.Context, userID primitive.ObjectID, username string) (*profileDto.FollowResponse, error)
	Unfollow(ctx context.Context, userID primitive.ObjectID, username string) (*profileDto.FollowResponse, error)
}

// SnapshotRefresher rewrites the author copy stored on a user's stories.
type SnapshotRefresher interface {
	RefreshAuthorSnapshot(ctx context.Context, snapshot *entity.AuthorSnapshot, legacyUsernames ...string) (int64, error)
}

type profileService struct {
	repo         userRepo.UserRepository
	imageStorage storage.ImageStorage
	stories      SnapshotRefresher
}

func NewProfileService(repo userRepo.UserRepository, imageStorage storage.ImageStorage, stories SnapshotRefresher) ProfileService {
	return &profileService{
		repo:         repo,
		imageStorage: imageStorage,
		stories:      stories,
	}
}

func (s *profileService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, input profileDto.UpdateProfileInput, avatar *profileDto.AvatarFile) (*profileDto.UpdateProfileResponse, error) {
	current, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}

	var update userRepo.ProfileUpdate
	if input.Username != nil && strings.TrimSpace(*input.Username) != "" {
		name, err := user.NormalizeUsername(*input.Username)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(name, current.Username) {
			if _, err := s.repo.FindByUsername(ctx, name); err == nil {
				return nil, fmt.Errorf("%w: username already taken", apperror.ErrConflict)
			} else if !errors.Is(err, apperror.ErrNotFound) {
				return nil, err
			}
		}
		update.Username = &name
	}
	if input.Name != nil {
		update.Name = trimmed(input.Name)
	}
	if input.Bio != nil {
		update.Bio = trimmed(input.Bio)
	}

	if input.Password != nil && *input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hash := string(hashed)
		update.PasswordHash = &hash
	}

	if avatar != nil && avatar.Reader != nil {
		if s.imageStorage == nil {
			return nil, fmt.Errorf("image storage not configured: %w", apperror.ErrInternal)
		}
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, avatarFolder, uuid.New().String()+strings.ToLower(filepath.Ext(avatar.FileName)))
		if err != nil {
			if errors.Is(err, storage.ErrInvalidImage) {
				return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
			}
			return nil, fmt.Errorf("failed to upload avatar: %w", err)
		}
		update.ProfileImage = &url
	}

	updated, err := s.repo.UpdateProfile(ctx, userID, update)
	if err != nil {
		if update.ProfileImage != nil {
			s.deleteImage(ctx, *update.ProfileImage)
		}
		return nil, err
	}
	if update.ProfileImage != nil && current.ProfileImage != "" && current.ProfileImage != updated.ProfileImage {
		s.deleteImage(ctx, current.ProfileImage)
	}

	res := &profileDto.UpdateProfileResponse{User: userDto.ToUserResponse(updated, true)}

	// Stories keep a copy of the author; refresh it when anything shown there changed.
	if snapshotChanged(current, updated) && s.stories != nil {
		n, err := s.stories.RefreshAuthorSnapshot(ctx, updated.Snapshot(), current.Username)
		if err != nil {
			logger.Log.WithError(err).WithField("user_id", userID.Hex()).Warn("failed to refresh author snapshots")
		}
		res.StoriesRefreshed = n
	}

	return res, nil
}

func (s *profileService) GetProfileByUsername(ctx context.Context, username string, viewer *primitive.ObjectID) (*profileDto.PublicProfileResponse, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}

	res := &profileDto.PublicProfileResponse{
		ID:             u.ID.Hex(),
		Username:       u.Username,
		Name:           u.Name,
		Bio:            u.Bio,
		ProfileImage:   u.ProfileImage,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		CreatedAt:      u.CreatedAt,
	}
	if viewer != nil {
		res.IsFollowing = contains(u.Followers, *viewer)
	}
	return res, nil
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID primitive.ObjectID) (*userDto.UserResponse, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	res := userDto.ToUserResponse(u, true)
	return &res, nil
}

func (s *profileService) Follow(ctx context.Context, userID primitive.ObjectID, username string) (*profileDto.FollowResponse, error) {
	return s.setFollow(ctx, userID, username, true)
}

func (s *profileService) Unfollow(ctx context.Context, userID primitive.ObjectID, username string) (*profileDto.FollowResponse, error) {
	return s.setFollow(ctx, userID, username, false)
}

func (s *profileService) setFollow(ctx context.Context, userID primitive.ObjectID, username string, follow bool) (*profileDto.FollowResponse, error) {
	target, err := s.repo.FindByUsername(ctx, strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	if target.ID == userID {
		return nil, fmt.Errorf("%w: cannot follow yourself", apperror.ErrBadRequest)
	}

	if follow {
		err = s.repo.Follow(ctx, userID, target.ID)
	} else {
		err = s.repo.Unfollow(ctx, userID, target.ID)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	return &profileDto.FollowResponse{
		Following:      contains(updated.Followers, userID),
		FollowersCount: len(updated.Followers),
	}, nil
}

func (s *profileService) deleteImage(ctx context.Context, url string) {
	if s.imageStorage == nil {
		return
	}
	if err := s.imageStorage.DeleteImage(context.WithoutCancel(ctx), url); err != nil {
		logger.Log.WithFields(logrus.Fields{"url": url}).WithError(err).Warn("failed to delete avatar")
	}
}

func snapshotChanged(before, after *entity.User) bool {
	return before.Username != after.Username ||
		before.Name != after.Name ||
		before.ProfileImage != after.ProfileImage
}

func trimmed(value *string) *string {
	v := strings.TrimSpace(*value)
	return &v
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
