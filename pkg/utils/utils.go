package utils

import (
	"bytes"
	"crypto/rand"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
)

var ErrEmptyImage = errors.New("empty image data")

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	OptimizeFrame(imageData []byte, maxWidth, maxHeight int, quality int) ([]byte, error)
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// OptimizeFrame downscales an encoded image to fit within maxWidth x maxHeight
// (keeping aspect ratio) and re-encodes it as JPEG. A JPEG that already fits
// is returned as is.
func (u *utils) OptimizeFrame(imageData []byte, maxWidth, maxHeight int, quality int) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}
	if w, h := FitWithin(cfg.Width, cfg.Height, maxWidth, maxHeight); format == "jpeg" && w == cfg.Width && h == cfg.Height {
		return imageData, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}

	newWidth, newHeight := FitWithin(img.Bounds().Dx(), img.Bounds().Dy(), maxWidth, maxHeight)

	if newWidth != img.Bounds().Dx() || newHeight != img.Bounds().Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = dst
	}

	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	if (maxWidth <= 0 || width <= maxWidth) && (maxHeight <= 0 || height <= maxHeight) {
		return width, height
	}

	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = float64(maxWidth) / float64(width)
	}
	if maxHeight > 0 && height > maxHeight {
		if s := float64(maxHeight) / float64(height); s < scale {
			scale = s
		}
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}
	return newWidth, newHeight
}
