package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidImage is a payload problem. It never counts against a provider key.
var ErrInvalidImage = errors.New("invalid image")

const MaxImageBytes = 8 << 20

// DecodeBase64Image accepts raw base64 or a data URI and returns the bytes and
// the file extension matching the sniffed content type.
func DecodeBase64Image(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && i > 0 {
		payload = payload[i+1:]
	}
	if payload == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: not base64", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	ext, ok := imageExtensions[http.DetectContentType(data)]
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported content type", ErrInvalidImage)
	}
	return data, ext, nil
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}
