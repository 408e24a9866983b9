package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	now := time.Now()

	id, err := u.NewULIDFromTimestamp(now)
	require.NoError(t, err)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), parsed.Time())
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		name         string
		w, h, mw, mh int
		wantW, wantH int
	}{
		{"fits", 640, 480, 1280, 720, 640, 480},
		{"landscape", 1920, 1080, 640, 640, 640, 360},
		{"portrait", 1080, 1920, 640, 640, 360, 640},
		{"height bound", 800, 800, 1000, 400, 400, 400},
		{"unbounded", 4000, 3000, 0, 0, 4000, 3000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := FitWithin(tc.w, tc.h, tc.mw, tc.mh)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}

func TestOptimizeFrameDownscales(t *testing.T) {
	u := New()
	data := encodeTestJPEG(t, 200, 100)

	out, err := u.OptimizeFrame(data, 100, 100, 80)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestOptimizeFrameKeepsFittingJPEG(t *testing.T) {
	in := encodeTestJPEG(t, 320, 240)

	out, err := New().OptimizeFrame(in, 640, 480, 80)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestOptimizeFrameRejectsGarbage(t *testing.T) {
	u := New()

	_, err := u.OptimizeFrame(nil, 10, 10, 80)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = u.OptimizeFrame([]byte("not an image"), 10, 10, 80)
	assert.Error(t, err)
}
