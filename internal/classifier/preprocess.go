package classifier

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/soilsense/internal/mempool"
	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/MeKo-Tech/soilsense/internal/utils"
	"github.com/disintegration/imaging"
)

// PreprocessConfig describes how decoded images become model input.
type PreprocessConfig struct {
	Width    int
	Height   int
	Channels int
	Layout   onnx.Layout
	Filter   string
}

// DefaultPreprocessConfig resizes to 1024x1024 RGB, channels last.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		Width:    1024,
		Height:   1024,
		Channels: 3,
		Layout:   onnx.LayoutNHWC,
		Filter:   "catmullrom",
	}
}

// Preprocessor resizes and normalizes images into fixed-shape tensors.
// It is safe for concurrent use.
type Preprocessor struct {
	cfg    PreprocessConfig
	filter imaging.ResampleFilter
	order  utils.ChannelOrder
	pool   *mempool.Float32Pool
}

// NewPreprocessor validates cfg and builds a preprocessor.
func NewPreprocessor(cfg PreprocessConfig) (*Preprocessor, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Channels != 1 && cfg.Channels != 3 {
		return nil, fmt.Errorf("channels must be 1 or 3, got %d", cfg.Channels)
	}
	layout, err := onnx.ParseLayout(string(cfg.Layout))
	if err != nil {
		return nil, err
	}
	filter, err := utils.ParseResampleFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	cfg.Layout = layout

	order := utils.ChannelsLast
	if layout == onnx.LayoutNCHW {
		order = utils.ChannelsFirst
	}
	return &Preprocessor{
		cfg:    cfg,
		filter: filter,
		order:  order,
		pool:   mempool.NewFloat32Pool(cfg.Width * cfg.Height * cfg.Channels),
	}, nil
}

// Config returns the effective configuration.
func (p *Preprocessor) Config() PreprocessConfig { return p.cfg }

// Preprocess resizes img to exactly the target size (aspect ratio is not
// preserved), scales pixels to [0,1] and adds a leading batch dimension.
// The tensor's buffer comes from a pool; pass it to Release when done.
func (p *Preprocessor) Preprocess(img image.Image) (onnx.Tensor, error) {
	if img == nil {
		return onnx.Tensor{}, errors.New("input image is nil")
	}

	resized, err := utils.ResizeExact(img, p.cfg.Width, p.cfg.Height, p.filter)
	if err != nil {
		return onnx.Tensor{}, err
	}

	buf := p.pool.Get()
	data, err := utils.NormalizeIntoBuffer(resized, p.cfg.Channels, p.order, buf)
	if err != nil {
		p.pool.Put(buf)
		return onnx.Tensor{}, err
	}

	t, err := onnx.NewImageTensor(data, p.cfg.Layout, p.cfg.Channels, p.cfg.Height, p.cfg.Width)
	if err != nil {
		p.pool.Put(buf)
		return onnx.Tensor{}, err
	}
	return t, nil
}

// Release returns a tensor buffer produced by Preprocess to the pool.
func (p *Preprocessor) Release(t onnx.Tensor) {
	p.pool.Put(t.Data)
}

// PoolStats reports buffer reuse.
func (p *Preprocessor) PoolStats() mempool.Stats { return p.pool.Stats() }
