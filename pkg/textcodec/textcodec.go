// Package textcodec compresses long text bodies before they are stored.
package textcodec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const EncodingZstd = "zstd"

var (
	initOnce sync.Once
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	initErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	initOnce.Do(func() {
		encoder, initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if initErr != nil {
			return
		}
		decoder, initErr = zstd.NewReader(nil)
	})
	return encoder, decoder, initErr
}

// Compress returns the zstd frame for text.
func Compress(text string) ([]byte, error) {
	enc, _, err := codecs()
	if err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}
	return enc.EncodeAll([]byte(text), nil), nil
}

func Decompress(data []byte) (string, error) {
	_, dec, err := codecs()
	if err != nil {
		return "", fmt.Errorf("zstd init: %w", err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("zstd decode: %w", err)
	}
	return string(out), nil
}

// Pack compresses text when it is at least threshold bytes. It returns the
// payload to store and the encoding name, empty when text is kept as-is.
func Pack(text string, threshold int) (plain string, packed []byte, encoding string, err error) {
	if threshold <= 0 || len(text) < threshold {
		return text, nil, "", nil
	}
	packed, err = Compress(text)
	if err != nil {
		return "", nil, "", err
	}
	return "", packed, EncodingZstd, nil
}

// Unpack reverses Pack.
func Unpack(plain string, packed []byte, encoding string) (string, error) {
	switch encoding {
	case "":
		return plain, nil
	case EncodingZstd:
		return Decompress(packed)
	default:
		return "", fmt.Errorf("unknown content encoding %q", encoding)
	}
}
