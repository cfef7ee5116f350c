package util

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width int, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareImage(t *testing.T) {
	t.Parallel()

	t.Run("passes small images through", func(t *testing.T) {
		data := encodePNG(t, 20, 10)
		prepared, err := PrepareImage("garden.png", bytes.NewReader(data), ImageLimits{MaxBytes: 1 << 20, MaxDimension: 100})
		require.NoError(t, err)
		require.False(t, prepared.Resized)
		require.Equal(t, "garden.png", prepared.Name)
		require.Equal(t, "image/png", prepared.ContentType)
		require.Equal(t, data, prepared.Data)
		require.Equal(t, 20, prepared.Width)
	})

	t.Run("downscales large images to jpeg", func(t *testing.T) {
		data := encodePNG(t, 400, 200)
		prepared, err := PrepareImage("hall.png", bytes.NewReader(data), ImageLimits{MaxBytes: 1 << 20, MaxDimension: 100})
		require.NoError(t, err)
		require.True(t, prepared.Resized)
		require.Equal(t, "hall.jpg", prepared.Name)
		require.Equal(t, "image/jpeg", prepared.ContentType)
		require.Equal(t, 100, prepared.Width)
		require.Equal(t, 50, prepared.Height)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(prepared.Data))
		require.NoError(t, err)
		require.Equal(t, "jpeg", format)
		require.Equal(t, 100, cfg.Width)
	})

	t.Run("rejects non-images", func(t *testing.T) {
		_, err := PrepareImage("notes.txt", strings.NewReader("not an image"), ImageLimits{MaxBytes: 1 << 20, MaxDimension: 100})
		require.Error(t, err)
		require.Contains(t, err.Error(), "UNSUPPORTED_TYPE")
	})

	t.Run("rejects pixel counts over the budget before decoding", func(t *testing.T) {
		data := encodePNG(t, 300, 300)
		_, err := PrepareImage("plan.png", bytes.NewReader(data), ImageLimits{MaxBytes: 1 << 20, MaxDimension: 100, MaxPixels: 50_000})
		require.Error(t, err)
		require.Contains(t, err.Error(), "IMAGE_TOO_LARGE")

		prepared, err := PrepareImage("plan.png", bytes.NewReader(data), ImageLimits{MaxBytes: 1 << 20, MaxDimension: 100, MaxPixels: 90_000})
		require.NoError(t, err)
		require.True(t, prepared.Resized)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		data := encodePNG(t, 50, 50)
		_, err := PrepareImage("big.png", bytes.NewReader(data), ImageLimits{MaxBytes: 10, MaxDimension: 100})
		require.Error(t, err)
		require.Contains(t, err.Error(), "FILE_TOO_LARGE")
	})
}
