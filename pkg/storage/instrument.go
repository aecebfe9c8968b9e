package storage

import (
	"context"
	"io"

	"anoa.com/storyverse/pkg/metrics"
)

type instrumented struct {
	ImageStorage
	provider string
}

// Instrument counts uploads per provider and outcome.
func Instrument(s ImageStorage, provider string) ImageStorage {
	return &instrumented{ImageStorage: s, provider: provider}
}

func (s *instrumented) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	url, err := s.ImageStorage.UploadImage(ctx, r, folder, fileName)
	metrics.ImageUploads.WithLabelValues(s.provider, metrics.Outcome(err)).Inc()
	return url, err
}
