package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/soilsense/internal/synth"
	"github.com/stretchr/testify/require"
)

// Soil colours re-exported for tests.
var (
	AlluvialColor = synth.AlluvialColor
	BlackColor    = synth.BlackColor
	DesertColor   = synth.DesertColor
	RedColor      = synth.RedColor
)

// SoilImageConfig describes a synthetic soil texture.
type SoilImageConfig = synth.SoilImageConfig

// DefaultSoilImageConfig returns a small alluvial-coloured texture.
func DefaultSoilImageConfig() SoilImageConfig { return synth.DefaultSoilImageConfig() }

// GenerateSoilImage renders a deterministic grainy texture around the base colour.
func GenerateSoilImage(cfg SoilImageConfig) *image.RGBA { return synth.GenerateSoilImage(cfg) }

// CreateTestImage creates a uniform image with the given dimensions and colour.
func CreateTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}
	return img
}

// Encode encodes img in the named format (png, jpeg, gif, bmp or tiff).
func Encode(format string, img image.Image) ([]byte, error) { return synth.Encode(format, img) }

func mustEncode(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	data, err := Encode(format, img)
	require.NoError(t, err, "Failed to encode %s image", format)
	return data
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	return mustEncode(t, "png", img)
}

// EncodeJPEG encodes img as JPEG bytes.
func EncodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	return mustEncode(t, "jpeg", img)
}

// EncodeGIF encodes img as GIF bytes.
func EncodeGIF(t *testing.T, img image.Image) []byte {
	t.Helper()
	return mustEncode(t, "gif", img)
}

// EncodeBMP encodes img as BMP bytes.
func EncodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	return mustEncode(t, "bmp", img)
}

// EncodeTIFF encodes img as TIFF bytes.
func EncodeTIFF(t *testing.T, img image.Image) []byte {
	t.Helper()
	return mustEncode(t, "tiff", img)
}

// SoilPNG is shorthand for a default synthetic soil photo encoded as PNG.
func SoilPNG(t *testing.T) []byte {
	t.Helper()
	return EncodePNG(t, GenerateSoilImage(DefaultSoilImageConfig()))
}

// HugePNG returns a tiny PNG whose IHDR declares a width x height 8-bit
// grayscale image. The IDAT chunk carries no pixel data.
func HugePNG(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale
	writePNGChunk(&buf, "IHDR", ihdr)
	// empty zlib stream
	writePNGChunk(&buf, "IDAT", []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01})
	writePNGChunk(&buf, "IEND", nil)
	return buf.Bytes()
}

func writePNGChunk(buf *bytes.Buffer, kind string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data))) //nolint:gosec // G115: chunk sizes are tiny
	buf.Write(n[:])
	crc := crc32.NewIEEE()
	crc.Write([]byte(kind))
	crc.Write(data)
	buf.WriteString(kind)
	buf.Write(data)
	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	buf.Write(n[:])
}
