package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"anoa.com/storyverse/pkg/logger"
)

const imgbbEndpoint = "https://api.imgbb.com/1/upload"

type imgbbStorage struct {
	client   *http.Client
	endpoint string
	rotator  *KeyRotator
}

type imgbbResponse struct {
	Data struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Error   struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// imgbb answers 400 for a bad key as well as for a bad payload.
const imgbbInvalidKeyCode = 100

func (r imgbbResponse) keyRejected() bool {
	if r.Error.Code == imgbbInvalidKeyCode {
		return true
	}
	msg := strings.ToLower(r.Error.Message)
	return strings.Contains(msg, "api key") || strings.Contains(msg, "api v1 key")
}

// NewImgBBStorage uploads through the imgbb HTTP API, rotating over keys.
func NewImgBBStorage(keys []string, cooldown time.Duration) ImageStorage {
	return &imgbbStorage{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: imgbbEndpoint,
		rotator:  NewKeyRotator(keys, cooldown),
	}
}

func (s *imgbbStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if folder != "" {
		name = folder + "-" + name
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	return s.rotator.Do(func(key string) (string, error) {
		return s.upload(ctx, key, encoded, name)
	})
}

func (s *imgbbStorage) upload(ctx context.Context, key, encoded, name string) (string, error) {
	form := url.Values{}
	form.Set("image", encoded)
	if name != "" {
		form.Set("name", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"?key="+url.QueryEscape(key), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgbb request failed: %w", err)
	}
	defer resp.Body.Close()

	var body imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("imgbb returned unreadable response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest && body.keyRejected():
		return "", fmt.Errorf("imgbb rejected api key: %s", body.Error.Message)
	case resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", ErrInvalidImage, body.Error.Message)
	case resp.StatusCode != http.StatusOK || !body.Success:
		return "", fmt.Errorf("imgbb upload failed with status %d: %s", resp.StatusCode, body.Error.Message)
	}

	if body.Data.URL != "" {
		return body.Data.URL, nil
	}
	return body.Data.DisplayURL, nil
}

// DeleteImage is a no-op: imgbb only offers deletion through its web UI.
func (s *imgbbStorage) DeleteImage(ctx context.Context, fileURL string) error {
	logger.Log.WithField("url", fileURL).Debug("imgbb images cannot be deleted via API, skipping")
	return nil
}
