package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxUploadBytes caps uploaded image payloads
const MaxUploadBytes = 20 << 20

// DecodeUpload decodes an uploaded still (JPEG, PNG, GIF, BMP or WebP)
func DecodeUpload(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyFrame
	}
	if len(data) > MaxUploadBytes {
		return nil, "", fmt.Errorf("upload of %d bytes exceeds %d byte limit", len(data), MaxUploadBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	rgba, err := ToRGBA(img)
	if err != nil {
		return nil, "", err
	}
	return rgba, format, nil
}
