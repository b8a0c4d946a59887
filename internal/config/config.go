// Package config provides configuration management for slimview using Viper
// for loading from files, environment variables and command-line flags.
//
// Configuration comes from .slimview.yml, SLIMVIEW_ prefixed environment
// variables and flags bound by the cmd package. Load applies defaults and
// validates the result with ozzo-validation.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/logging"
	"github.com/conneroisu/slimview/internal/preview"
)

// Config is the complete slimview configuration.
type Config struct {
	Server      ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	Conversion  ConversionConfig `mapstructure:"conversion" yaml:"conversion" json:"conversion"`
	Preview     PreviewConfig    `mapstructure:"preview" yaml:"preview" json:"preview"`
	Logging     LoggingConfig    `mapstructure:"logging" yaml:"logging" json:"logging"`
	TargetFiles []string         `mapstructure:"-" yaml:"-" json:"-"` // CLI arguments, not from config file
}

// ServerConfig configures the browser preview server.
type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host" json:"host"`
	Port           int      `mapstructure:"port" yaml:"port" json:"port"`
	Open           bool     `mapstructure:"open" yaml:"open" json:"open"`
	NoOpen         bool     `mapstructure:"no-open" yaml:"-" json:"-"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
}

// ConversionConfig configures the remote conversion services.
type ConversionConfig struct {
	HTMLEndpoint     string        `mapstructure:"html_endpoint" yaml:"html_endpoint" json:"html_endpoint"`
	SlimEndpoint     string        `mapstructure:"slim_endpoint" yaml:"slim_endpoint" json:"slim_endpoint"`
	PreProcessor     string        `mapstructure:"pre_processor" yaml:"pre_processor" json:"pre_processor"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	MaxResponseBytes int64         `mapstructure:"max_response_bytes" yaml:"max_response_bytes" json:"max_response_bytes"`
}

// PreviewConfig configures the conversion pipeline and preview rendering.
type PreviewConfig struct {
	Scheme   string        `mapstructure:"scheme" yaml:"scheme" json:"scheme"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
	Kinds    []string      `mapstructure:"kinds" yaml:"kinds" json:"kinds"`
	ReadOnly bool          `mapstructure:"read_only" yaml:"read_only" json:"read_only"`
	Style    string        `mapstructure:"style" yaml:"style" json:"style"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Default values.
const (
	DefaultHost   = "localhost"
	DefaultPort   = 8080
	DefaultStyle  = "github"
	DefaultLevel  = "info"
	DefaultFormat = "text"
)

// SetDefaults registers default values with the global viper instance.
func SetDefaults() {
	viper.SetDefault("server.host", DefaultHost)
	viper.SetDefault("server.port", DefaultPort)
	viper.SetDefault("server.open", true)
	viper.SetDefault("server.allowed_origins", []string{})

	viper.SetDefault("conversion.html_endpoint", convert.DefaultHTMLEndpoint)
	viper.SetDefault("conversion.slim_endpoint", convert.DefaultSlimEndpoint)
	viper.SetDefault("conversion.pre_processor", convert.DefaultPreProcessor)
	viper.SetDefault("conversion.timeout", convert.DefaultTimeout)
	viper.SetDefault("conversion.max_response_bytes", convert.DefaultMaxResponseBytes)

	viper.SetDefault("preview.scheme", preview.DefaultScheme)
	viper.SetDefault("preview.debounce", preview.DefaultDebounce)
	viper.SetDefault("preview.kinds", preview.DefaultKinds)
	viper.SetDefault("preview.read_only", false)
	viper.SetDefault("preview.style", DefaultStyle)

	viper.SetDefault("logging.level", DefaultLevel)
	viper.SetDefault("logging.format", DefaultFormat)
}

// Load reads the configuration from viper, applies defaults and validates it.
func Load() (*Config, error) {
	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError("failed to decode configuration", err)
	}

	// Override open if no-open is explicitly set via flag
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.Open = false
	}

	if err := config.Validate(); err != nil {
		return nil, errors.NewConfigError("invalid configuration", err)
	}

	return &config, nil
}

// ConverterOptions returns the options for convert.NewHTTPConverter.
func (c *Config) ConverterOptions() convert.Options {
	return convert.Options{
		HTMLEndpoint:     c.Conversion.HTMLEndpoint,
		SlimEndpoint:     c.Conversion.SlimEndpoint,
		PreProcessor:     c.Conversion.PreProcessor,
		Timeout:          c.Conversion.Timeout,
		MaxResponseBytes: c.Conversion.MaxResponseBytes,
	}
}

// PipelineOptions returns the options for preview.New.
func (c *Config) PipelineOptions() preview.Options {
	return preview.Options{
		Scheme:   c.Preview.Scheme,
		Debounce: c.Preview.Debounce,
		Kinds:    c.Preview.Kinds,
		Timeout:  c.Conversion.Timeout,
		ReadOnly: c.Preview.ReadOnly,
	}
}

// LoggerConfig returns the logger configuration. Unknown levels fall back
// to info; Validate rejects them earlier.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.Logging.Format
	return cfg
}
