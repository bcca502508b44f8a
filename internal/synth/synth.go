// Package synth renders deterministic synthetic soil photographs. It backs
// the benchmark command, the test data generator and the test helpers.
package synth

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Representative surface colours for synthetic soil photographs.
var (
	AlluvialColor = color.RGBA{R: 164, G: 138, B: 104, A: 255}
	BlackColor    = color.RGBA{R: 48, G: 44, B: 40, A: 255}
	DesertColor   = color.RGBA{R: 222, G: 196, B: 150, A: 255}
	RedColor      = color.RGBA{R: 150, G: 62, B: 40, A: 255}
)

// Formats lists the encodings Encode understands.
var Formats = []string{"png", "jpeg", "gif", "bmp", "tiff"}

// SoilImageConfig describes a synthetic soil texture.
type SoilImageConfig struct {
	Width  int
	Height int
	Base   color.RGBA
	// Grain is the maximum per-channel deviation applied to each pixel.
	Grain int
	Seed  int64
}

// DefaultSoilImageConfig returns a small alluvial-coloured texture.
func DefaultSoilImageConfig() SoilImageConfig {
	return SoilImageConfig{Width: 64, Height: 48, Base: AlluvialColor, Grain: 12, Seed: 1}
}

// GenerateSoilImage renders a grainy texture around the base colour. The
// same config always yields the same pixels.
func GenerateSoilImage(cfg SoilImageConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: deterministic synthetic data
	for y := range cfg.Height {
		for x := range cfg.Width {
			img.SetRGBA(x, y, color.RGBA{
				R: jitter(cfg.Base.R, cfg.Grain, rng),
				G: jitter(cfg.Base.G, cfg.Grain, rng),
				B: jitter(cfg.Base.B, cfg.Grain, rng),
				A: 255,
			})
		}
	}
	return img
}

func jitter(v uint8, grain int, rng *rand.Rand) uint8 {
	if grain <= 0 {
		return v
	}
	n := int(v) + rng.Intn(2*grain+1) - grain
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	default:
		return uint8(n) //nolint:gosec // G115: clamped above
	}
}

// Encode encodes img in the named format (png, jpeg, gif, bmp or tiff).
func Encode(format string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(format) {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg", "jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff", "tif":
		err = tiff.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// SoilPNG encodes the default synthetic soil photo as PNG.
func SoilPNG() ([]byte, error) {
	return Encode("png", GenerateSoilImage(DefaultSoilImageConfig()))
}
