package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks input that could not be decoded into an image.
var ErrDecode = errors.New("cannot identify image file")

// ErrTooManyPixels marks an image whose header declares more pixels than the
// decode budget allows. It is always reported together with ErrDecode.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// DefaultMaxPixels is the decode budget: twice the 89,478,485 pixel
// decompression bomb warning level used by common imaging libraries.
const DefaultMaxPixels int64 = 2 * 89_478_485

// SupportedImageExtensions lists file extensions accepted for upload and loading.
// Decoding always sniffs the content; the extension is only a pre-check.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".avif"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImageMetadata captures lightweight source and pixel information.
type ImageMetadata struct {
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// DecodeImage decodes raw bytes into an image within DefaultMaxPixels.
func DecodeImage(data []byte) (image.Image, ImageMetadata, error) {
	return DecodeImageWithLimit(data, DefaultMaxPixels)
}

// DecodeImageWithLimit decodes raw bytes into an image. Empty, truncated or
// unknown input, images without pixels, and images whose header declares more
// than maxPixels pixels yield an error wrapping ErrDecode. The header is
// checked before any pixel buffer is allocated. maxPixels <= 0 disables the
// budget.
func DecodeImageWithLimit(data []byte, maxPixels int64) (img image.Image, meta ImageMetadata, err error) {
	if len(data) == 0 {
		return nil, ImageMetadata{}, decodeError(errors.New("empty image data"))
	}

	// Some third-party decoders panic on hostile input instead of failing.
	defer func() {
		if r := recover(); r != nil {
			img, meta = nil, ImageMetadata{}
			err = decodeError(fmt.Errorf("decoder panic: %v", r))
		}
	}()

	cfg, _, cfgErr := image.DecodeConfig(bytes.NewReader(data))
	if cfgErr != nil {
		return nil, ImageMetadata{}, decodeError(cfgErr)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ImageMetadata{}, decodeError(fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, ImageMetadata{}, decodeError(fmt.Errorf("%w: %dx%d is more than %d pixels",
			ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels))
	}

	decoded, format, decErr := image.Decode(bytes.NewReader(data))
	if decErr != nil {
		return nil, ImageMetadata{}, decodeError(decErr)
	}

	b := decoded.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ImageMetadata{}, decodeError(fmt.Errorf("invalid dimensions %dx%d", b.Dx(), b.Dy()))
	}

	return decoded, ImageMetadata{
		Format:    format,
		SizeBytes: int64(len(data)),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

func decodeError(err error) error {
	return &ImageProcessingError{Operation: "decode", Err: fmt.Errorf("%w: %w", ErrDecode, err)}
}

// ReadImageFile reads a file from disk after checking its extension.
func ReadImageFile(path string) ([]byte, error) {
	if path == "" {
		return nil, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, &ImageProcessingError{Operation: "load", Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		return nil, &ImageProcessingError{Operation: "load", Err: err}
	}
	return data, nil
}
