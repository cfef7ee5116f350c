package util

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"estate-web/pkg/apierror"
)

// ImageLimits bound what PrepareImage accepts. MaxPixels is checked against
// the header before any pixel data is decoded.
type ImageLimits struct {
	MaxBytes     int64
	MaxDimension int
	MaxPixels    int64
}

// PreparedImage is an upload that passed the local image checks.
type PreparedImage struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	Resized     bool
}

// PrepareImage verifies that r holds a decodable image and downsizes it to
// fit limits.MaxDimension on its longest side. Downsized images are
// re-encoded as JPEG; everything else is passed through byte for byte.
func PrepareImage(name string, r io.Reader, limits ImageLimits) (PreparedImage, error) {
	cleanName, err := CleanUploadName(name)
	if err != nil {
		return PreparedImage{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, limits.MaxBytes+1))
	if err != nil {
		return PreparedImage{}, fmt.Errorf("read %s: %w", cleanName, err)
	}
	if int64(len(data)) > limits.MaxBytes {
		return PreparedImage{}, apierror.New("FILE_TOO_LARGE", "file is larger than the upload limit", cleanName, http.StatusRequestEntityTooLarge)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, apierror.New("UNSUPPORTED_TYPE", "file is not a supported image", cleanName, http.StatusUnsupportedMediaType)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return PreparedImage{}, apierror.New("UNSUPPORTED_TYPE", "invalid image dimensions", cleanName, http.StatusUnsupportedMediaType)
	}
	if limits.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > limits.MaxPixels {
		return PreparedImage{}, apierror.New("IMAGE_TOO_LARGE",
			fmt.Sprintf("image is %dx%d pixels, which is more than can be processed", cfg.Width, cfg.Height),
			cleanName, http.StatusRequestEntityTooLarge)
	}

	prepared := PreparedImage{
		Name:        cleanName,
		ContentType: MIMEForFormat(format),
		Data:        data,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}

	maxDimension := limits.MaxDimension
	if maxDimension <= 0 || (cfg.Width <= maxDimension && cfg.Height <= maxDimension) {
		return prepared, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return PreparedImage{}, apierror.New("UNSUPPORTED_TYPE", "cannot decode image", cleanName, http.StatusUnsupportedMediaType)
	}

	scaled, width, height := scaleToFit(src, maxDimension)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 90}); err != nil {
		return PreparedImage{}, fmt.Errorf("encode resized %s: %w", cleanName, err)
	}

	prepared.Name = ReplaceExtension(cleanName, ".jpg")
	prepared.ContentType = "image/jpeg"
	prepared.Data = buf.Bytes()
	prepared.Width = width
	prepared.Height = height
	prepared.Resized = true
	return prepared, nil
}

func scaleToFit(src image.Image, maxDimension int) (image.Image, int, int) {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	longest := width
	if height > longest {
		longest = height
	}

	scale := float64(maxDimension) / float64(longest)
	targetWidth := int(math.Round(float64(width) * scale))
	targetHeight := int(math.Round(float64(height) * scale))
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst, targetWidth, targetHeight
}
