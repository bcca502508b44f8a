// Package pipeline wires decoding, preprocessing, classification, the
// confidence policy and crop recommendations into a single call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/MeKo-Tech/soilsense/internal/classifier"
	"github.com/MeKo-Tech/soilsense/internal/decision"
	"github.com/MeKo-Tech/soilsense/internal/models"
	"github.com/MeKo-Tech/soilsense/internal/onnx"
	"github.com/MeKo-Tech/soilsense/internal/soil"
	"github.com/MeKo-Tech/soilsense/internal/utils"
)

// Config holds configuration for the pipeline and its components.
type Config struct {
	ModelsDir        string
	Classifier       classifier.Config
	Preprocess       classifier.PreprocessConfig
	Threshold        float64 // acceptance threshold in percent
	CatalogPath      string  // empty selects the built-in catalog
	WarmupIterations int
	MaxPixels        int64 // decode budget in pixels, <= 0 disables it
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir:        models.GetModelsDir(""),
		Classifier:       classifier.DefaultConfig(),
		Preprocess:       classifier.DefaultPreprocessConfig(),
		Threshold:        decision.DefaultThreshold,
		WarmupIterations: 0,
		MaxPixels:        utils.DefaultMaxPixels,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg          Config
	model        classifier.Model
	catalog      *soil.Catalog
	explicitPath bool
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// NewBuilderFromConfig starts from an existing configuration.
func NewBuilderFromConfig(cfg Config) *Builder {
	return &Builder{cfg: cfg, explicitPath: cfg.Classifier.ModelPath != ""}
}

// WithModelsDir sets the models directory and re-resolves the model path
// unless one was set explicitly.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.cfg.ModelsDir = dir
	}
	if !b.explicitPath {
		b.cfg.Classifier.ModelPath = models.GetClassifierModelPath(b.cfg.ModelsDir, "", false)
	}
	return b
}

// WithModelPath overrides the classifier model path directly.
func (b *Builder) WithModelPath(path string) *Builder {
	if path != "" {
		b.cfg.Classifier.ModelPath = path
		b.explicitPath = true
	}
	return b
}

// WithModel injects a ready model, bypassing ONNX loading. The pipeline
// takes ownership and closes it on Close.
func (b *Builder) WithModel(m classifier.Model) *Builder {
	b.model = m
	return b
}

// WithCatalog injects a prepared recommendation catalog.
func (b *Builder) WithCatalog(c *soil.Catalog) *Builder {
	b.catalog = c
	return b
}

// WithCatalogPath loads recommendations from a YAML or TOML file.
func (b *Builder) WithCatalogPath(path string) *Builder {
	b.cfg.CatalogPath = path
	return b
}

// WithThreshold sets the acceptance threshold in percent.
func (b *Builder) WithThreshold(th float64) *Builder {
	b.cfg.Threshold = th
	return b
}

// WithMaxPixels sets the largest width*height accepted at decode time.
func (b *Builder) WithMaxPixels(n int64) *Builder {
	b.cfg.MaxPixels = n
	return b
}

// WithInputSize sets the resize target.
func (b *Builder) WithInputSize(width, height int) *Builder {
	if width > 0 {
		b.cfg.Preprocess.Width = width
	}
	if height > 0 {
		b.cfg.Preprocess.Height = height
	}
	return b
}

// WithChannels selects RGB (3) or luma (1) input.
func (b *Builder) WithChannels(c int) *Builder {
	if c > 0 {
		b.cfg.Preprocess.Channels = c
	}
	return b
}

// WithLayout selects the tensor axis order expected by the model.
func (b *Builder) WithLayout(layout onnx.Layout) *Builder {
	if layout != "" {
		b.cfg.Preprocess.Layout = layout
	}
	return b
}

// WithResampleFilter sets the resize filter by name.
func (b *Builder) WithResampleFilter(name string) *Builder {
	if name != "" {
		b.cfg.Preprocess.Filter = name
	}
	return b
}

// WithThreads sets intra-op thread count (if >0).
func (b *Builder) WithThreads(n int) *Builder {
	if n > 0 {
		b.cfg.Classifier.NumThreads = n
	}
	return b
}

// WithSessions sets how many inference sessions run in parallel.
func (b *Builder) WithSessions(n int) *Builder {
	if n > 0 {
		b.cfg.Classifier.Sessions = n
	}
	return b
}

// WithWarmupIterations sets the number of warmup passes per session.
func (b *Builder) WithWarmupIterations(n int) *Builder {
	if n >= 0 {
		b.cfg.WarmupIterations = n
	}
	return b
}

// WithGPU enables or disables CUDA acceleration.
func (b *Builder) WithGPU(enabled bool) *Builder {
	b.cfg.Classifier.GPU.UseGPU = enabled
	return b
}

// WithGPUDevice selects the CUDA device.
func (b *Builder) WithGPUDevice(deviceID int) *Builder {
	if deviceID >= 0 {
		b.cfg.Classifier.GPU.DeviceID = deviceID
	}
	return b
}

// WithGPUMemoryLimit caps GPU memory in bytes (0 = unlimited).
func (b *Builder) WithGPUMemoryLimit(limitBytes uint64) *Builder {
	b.cfg.Classifier.GPU.GPUMemLimit = limitBytes
	return b
}

// Config returns the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the builder configuration.
func (b *Builder) Validate() error {
	if _, err := decision.NewEngine(b.cfg.Threshold); err != nil {
		return err
	}
	if _, err := classifier.NewPreprocessor(b.cfg.Preprocess); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if b.cfg.WarmupIterations < 0 {
		return errors.New("warmup iterations cannot be negative")
	}
	return nil
}

// Pipeline classifies soil photographs. It is safe for concurrent use.
type Pipeline struct {
	cfg      Config
	model    classifier.Model
	pre      *classifier.Preprocessor
	engine   *decision.Engine
	catalog  *soil.Catalog
	profiler *Profiler
	closed   atomic.Bool
}

// Build validates the configuration, loads the catalog and the model, and
// returns a ready pipeline. Errors here are startup configuration errors.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	engine, _ := decision.NewEngine(b.cfg.Threshold)
	pre, _ := classifier.NewPreprocessor(b.cfg.Preprocess)
	b.cfg.Preprocess = pre.Config()

	catalog := b.catalog
	if catalog == nil {
		var err error
		catalog, err = soil.LoadCatalog(b.cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	} else if err := catalog.Validate(); err != nil {
		return nil, err
	}

	b.cfg.Classifier.Width = b.cfg.Preprocess.Width
	b.cfg.Classifier.Height = b.cfg.Preprocess.Height
	b.cfg.Classifier.Channels = b.cfg.Preprocess.Channels
	b.cfg.Classifier.Layout = b.cfg.Preprocess.Layout

	model := b.model
	if model == nil {
		cls, err := classifier.New(b.cfg.Classifier)
		if err != nil {
			return nil, fmt.Errorf("init classifier: %w", err)
		}
		if b.cfg.WarmupIterations > 0 {
			if err := cls.Warmup(context.Background(), b.cfg.WarmupIterations); err != nil {
				_ = cls.Close()
				return nil, fmt.Errorf("classifier warmup failed: %w", err)
			}
		}
		model = cls
	}

	p := &Pipeline{
		cfg:      b.cfg,
		model:    model,
		pre:      pre,
		engine:   engine,
		catalog:  catalog,
		profiler: &Profiler{},
	}
	slog.Debug("Pipeline initialized",
		"threshold", b.cfg.Threshold,
		"input", fmt.Sprintf("%dx%d", b.cfg.Preprocess.Width, b.cfg.Preprocess.Height),
		"layout", b.cfg.Preprocess.Layout,
		"catalog", b.cfg.CatalogPath)
	return p, nil
}

// Close releases the model. Runs that start afterwards report StatusFailed;
// runs already in flight finish against the model's own close guard.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) || p.model == nil {
		return nil
	}
	return p.model.Close()
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Catalog returns the recommendation catalog.
func (p *Pipeline) Catalog() *soil.Catalog { return p.catalog }

// Profiler exposes cumulative run statistics.
func (p *Pipeline) Profiler() *Profiler { return p.profiler }

// Info describes the pipeline and its model.
func (p *Pipeline) Info() map[string]interface{} {
	info := map[string]interface{}{
		"models_dir": p.cfg.ModelsDir,
		"threshold":  p.cfg.Threshold,
		"categories": soil.Names(),
		"preprocess": map[string]interface{}{
			"width":    p.cfg.Preprocess.Width,
			"height":   p.cfg.Preprocess.Height,
			"channels": p.cfg.Preprocess.Channels,
			"layout":   string(p.cfg.Preprocess.Layout),
			"filter":   p.cfg.Preprocess.Filter,
		},
		"tensor_pool": p.pre.PoolStats(),
	}
	if ip, ok := p.model.(classifier.InfoProvider); ok {
		info["classifier"] = ip.GetModelInfo()
	}
	return info
}
