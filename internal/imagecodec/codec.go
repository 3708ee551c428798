// Package imagecodec turns uploaded bytes into pixels and face crops back
// into transportable text.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// JPEGQuality matches the encoder default used by the original crops.
const JPEGQuality = 95

// ErrEmptyImage is returned for a zero-length upload.
var ErrEmptyImage = errors.New("empty image")

// Decoded is a raster image plus the container format it came in.
type Decoded struct {
	Image  image.Image
	Format string
}

// Decode decodes data into an image, applying EXIF orientation.
func Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	return &Decoded{Image: img, Format: format}, nil
}

// Crop returns the part of img covered by bbox (x1, y1, x2, y2, relative to
// the image origin). ok is false when the box is degenerate or falls outside
// the image.
func Crop(img image.Image, bbox [4]int) (cropped image.Image, ok bool) {
	x1, y1, x2, y2 := bbox[0], bbox[1], bbox[2], bbox[3]
	if x2 <= x1 || y2 <= y1 {
		return nil, false
	}

	b := img.Bounds()
	rect := image.Rect(x1, y1, x2, y2).Add(b.Min).Intersect(b)
	if rect.Empty() {
		return nil, false
	}

	return imaging.Crop(img, rect), true
}

// EncodeJPEG encodes img as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEGBase64 encodes img as JPEG and then as standard base64 text.
func EncodeJPEGBase64(img image.Image) (string, error) {
	raw, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
