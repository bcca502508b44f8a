package utils

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ChannelOrder selects the memory layout of normalized pixel data.
type ChannelOrder int

const (
	// ChannelsLast stores pixels as [H, W, C].
	ChannelsLast ChannelOrder = iota
	// ChannelsFirst stores pixels as [C, H, W].
	ChannelsFirst
)

// ResampleFilters maps configuration names to imaging filters.
var ResampleFilters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// ParseResampleFilter resolves a filter by name.
func ParseResampleFilter(name string) (imaging.ResampleFilter, error) {
	f, ok := ResampleFilters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter: %q", name)
	}
	return f, nil
}

// ResizeExact resizes img to exactly width x height, ignoring aspect ratio.
func ResizeExact(img image.Image, width, height int, filter imaging.ResampleFilter) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid target dimensions: %dx%d", width, height),
		}
	}
	return imaging.Resize(img, width, height, filter), nil
}

// NormalizeIntoBuffer scales the pixels of img into [0,1] and writes them to
// buf in the requested order. channels must be 3 (RGB) or 1 (luma); alpha is
// dropped. If buf is too small a new buffer is allocated. Returns the slice
// used, sized to channels*width*height.
func NormalizeIntoBuffer(img *image.NRGBA, channels int, order ChannelOrder, buf []float32) ([]float32, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	if channels != 1 && channels != 3 {
		return nil, &ImageProcessingError{Operation: "normalize", Err: fmt.Errorf("unsupported channel count %d", channels)}
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}

	plane := width * height
	needed := channels * plane
	if cap(buf) < needed {
		buf = make([]float32, needed)
	}
	data := buf[:needed]

	for y := range height {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := range width {
			p := row[x*4 : x*4+3 : x*4+3]
			idx := y*width + x
			if channels == 1 {
				data[idx] = luma(p[0], p[1], p[2])
				continue
			}
			r := float32(p[0]) / 255.0
			g := float32(p[1]) / 255.0
			bl := float32(p[2]) / 255.0
			if order == ChannelsFirst {
				data[idx] = r
				data[plane+idx] = g
				data[2*plane+idx] = bl
			} else {
				data[idx*3] = r
				data[idx*3+1] = g
				data[idx*3+2] = bl
			}
		}
	}
	return data, nil
}

// luma follows the ITU-R 601-2 transform used by common image libraries.
func luma(r, g, b uint8) float32 {
	v := (299*float32(r) + 587*float32(g) + 114*float32(b)) / 1000
	v /= 255.0
	if v > 1 {
		return 1
	}
	return v
}
