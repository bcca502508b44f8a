package utils

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/soilsense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImageFormats(t *testing.T) {
	src := testutil.GenerateSoilImage(testutil.DefaultSoilImageConfig())
	tests := []struct {
		name   string
		encode func(*testing.T, image.Image) []byte
		format string
	}{
		{"png", testutil.EncodePNG, "png"},
		{"jpeg", testutil.EncodeJPEG, "jpeg"},
		{"gif", testutil.EncodeGIF, "gif"},
		{"bmp", testutil.EncodeBMP, "bmp"},
		{"tiff", testutil.EncodeTIFF, "tiff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.encode(t, src)
			img, meta, err := DecodeImage(data)
			require.NoError(t, err)
			require.NotNil(t, img)
			assert.Equal(t, tt.format, meta.Format)
			assert.Equal(t, 64, meta.Width)
			assert.Equal(t, 48, meta.Height)
			assert.Equal(t, int64(len(data)), meta.SizeBytes)
		})
	}
}

func TestDecodeImageRejectsBadInput(t *testing.T) {
	png := testutil.SoilPNG(t)
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"text", []byte("this is not an image")},
		{"truncated png", png[:len(png)/3]},
		{"header only", png[:8]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := DecodeImage(tt.data)
			require.Error(t, err)
			assert.Nil(t, img)
			require.ErrorIs(t, err, ErrDecode)

			var ipe *ImageProcessingError
			require.True(t, errors.As(err, &ipe))
			assert.Equal(t, "decode", ipe.Operation)
		})
	}
}

func TestIsSupportedImage(t *testing.T) {
	tests := map[string]bool{
		"soil.jpg":   true,
		"soil.JPEG":  true,
		"soil.png":   true,
		"soil.gif":   true,
		"soil.webp":  true,
		"soil.avif":  true,
		"soil.pdf":   false,
		"soil":       false,
		"archive.gz": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, IsSupportedImage(name), name)
	}
}

func TestDecodeImageRejectsOversizedHeader(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
	}{
		{"40000 square", 40000, 40000},
		{"just over budget", 13380, 13375},
		{"wide strip", 1 << 30, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := DecodeImage(testutil.HugePNG(t, tt.width, tt.height))
			require.Error(t, err)
			assert.Nil(t, img)
			require.ErrorIs(t, err, ErrDecode)
			require.ErrorIs(t, err, ErrTooManyPixels)

			var ipe *ImageProcessingError
			require.True(t, errors.As(err, &ipe))
			assert.Equal(t, "decode", ipe.Operation)
		})
	}
}

func TestDecodeImageWithLimit(t *testing.T) {
	data := testutil.SoilPNG(t) // 64x48 = 3072 pixels

	_, _, err := DecodeImageWithLimit(data, 3071)
	require.ErrorIs(t, err, ErrTooManyPixels)
	assert.Contains(t, err.Error(), "64x48")

	img, meta, err := DecodeImageWithLimit(data, 3072)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, meta.Height)

	_, _, err = DecodeImageWithLimit(data, 0)
	require.NoError(t, err, "non-positive limit disables the budget")
}

func TestDefaultMaxPixels(t *testing.T) {
	assert.Equal(t, int64(178_956_970), DefaultMaxPixels)
}

func TestReadImageFile(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.CreateTestImage(20, 10, color.RGBA{R: 200, A: 255}))
	path := testutil.WriteTempFile(t, "red.png", data)

	got, err := ReadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadImageFileErrors(t *testing.T) {
	_, err := ReadImageFile("")
	require.Error(t, err)

	_, err = ReadImageFile("notes.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	_, err = ReadImageFile("/definitely/missing/soil.png")
	require.Error(t, err)
	var ipe *ImageProcessingError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "load", ipe.Operation)
}

func isDecodeErr(err error) bool { return errors.Is(err, ErrDecode) }
