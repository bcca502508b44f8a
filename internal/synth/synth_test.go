package synth

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

func TestGenerateSoilImageDeterministic(t *testing.T) {
	cfg := DefaultSoilImageConfig()
	a := GenerateSoilImage(cfg)
	b := GenerateSoilImage(cfg)
	assert.Equal(t, a.Pix, b.Pix)
	assert.Equal(t, cfg.Width, a.Bounds().Dx())
	assert.Equal(t, cfg.Height, a.Bounds().Dy())

	cfg.Seed = 2
	assert.NotEqual(t, a.Pix, GenerateSoilImage(cfg).Pix)
}

func TestGenerateSoilImageNoGrain(t *testing.T) {
	cfg := DefaultSoilImageConfig()
	cfg.Grain = 0
	img := GenerateSoilImage(cfg)
	assert.Equal(t, cfg.Base, img.RGBAAt(3, 5))
}

func TestEncodeRoundTripsEveryFormat(t *testing.T) {
	img := GenerateSoilImage(DefaultSoilImageConfig())
	for _, f := range Formats {
		t.Run(f, func(t *testing.T) {
			data, err := Encode(f, img)
			require.NoError(t, err)
			cfg, got, err := image.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, f, got)
			assert.Equal(t, 64, cfg.Width)
			assert.Equal(t, 48, cfg.Height)
		})
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	_, err := Encode("webp", GenerateSoilImage(DefaultSoilImageConfig()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
}

func TestSoilPNG(t *testing.T) {
	data, err := SoilPNG()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
}
