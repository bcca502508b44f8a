//nolint:lll
package config

// Config represents the complete configuration for the soilsense application.
// It includes settings for all commands (classify, serve, catalog) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Classifier model
	Model ModelConfig `mapstructure:"model" yaml:"model" json:"model"`

	// Image preprocessing
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`

	// Confidence policy
	Decision DecisionConfig `mapstructure:"decision" yaml:"decision" json:"decision"`

	// Crop recommendations
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// GPU configuration
	GPU GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// ModelConfig contains classifier model settings.
type ModelConfig struct {
	Path             string `mapstructure:"path" yaml:"path" json:"path"`
	FP16             bool   `mapstructure:"fp16" yaml:"fp16" json:"fp16"`
	NumThreads       int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	Sessions         int    `mapstructure:"sessions" yaml:"sessions" json:"sessions"`
	WarmupIterations int    `mapstructure:"warmup_iterations" yaml:"warmup_iterations" json:"warmup_iterations"`
}

// PreprocessConfig contains resize and tensor layout settings.
type PreprocessConfig struct {
	Width     int    `mapstructure:"width" yaml:"width" json:"width"`
	Height    int    `mapstructure:"height" yaml:"height" json:"height"`
	Channels  int    `mapstructure:"channels" yaml:"channels" json:"channels"`
	Layout    string `mapstructure:"layout" yaml:"layout" json:"layout"`
	Filter    string `mapstructure:"filter" yaml:"filter" json:"filter"`
	// MaxPixels caps width*height of uploaded photos before decoding.
	MaxPixels int64  `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`
}

// DecisionConfig contains the acceptance policy.
type DecisionConfig struct {
	Threshold float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
}

// CatalogConfig points at an optional recommendation catalog file.
type CatalogConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
