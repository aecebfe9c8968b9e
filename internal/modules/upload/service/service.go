package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	uploadDto "anoa.com/storyverse/internal/modules/upload/dto"
	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const uploadFolder = "uploads"

var unsafeName = regexp.MustCompile(`[^a-z0-9_-]+`)

type UploadService interface {
	UploadImage(ctx context.Context, userID primitive.ObjectID, req uploadDto.UploadImageInput) (*uploadDto.UploadImageResponse, error)
}

type uploadService struct {
	imageStorage storage.ImageStorage
}

func NewUploadService(imageStorage storage.ImageStorage) UploadService {
	return &uploadService{imageStorage: imageStorage}
}

func (s *uploadService) UploadImage(ctx context.Context, userID primitive.ObjectID, req uploadDto.UploadImageInput) (*uploadDto.UploadImageResponse, error) {
	if s.imageStorage == nil {
		return nil, fmt.Errorf("image storage not configured: %w", apperror.ErrInternal)
	}

	data, ext, err := storage.DecodeBase64Image(req.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
	}

	fileName := fileBase(req.Name) + ext
	url, err := s.imageStorage.UploadImage(ctx, bytes.NewReader(data), uploadFolder, fileName)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"bytes":   len(data),
	}).Info("image uploaded")

	return &uploadDto.UploadImageResponse{URL: url}, nil
}

// fileBase turns a client supplied name into a safe file stem, suffixed so
// repeated names never collide.
func fileBase(name string) string {
	suffix := uuid.New().String()[:8]
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	name = strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if name == "" {
		return uuid.New().String()
	}
	if len(name) > 60 {
		name = name[:60]
	}
	return name + "-" + suffix
}
