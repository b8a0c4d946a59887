package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/logging"
	"github.com/conneroisu/slimview/internal/preview"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, config *Config)
	}{
		{
			name: "successful load with defaults",
			setup: func() {
				viper.Reset()
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, DefaultHost, config.Server.Host)
				assert.Equal(t, DefaultPort, config.Server.Port)
				assert.True(t, config.Server.Open)
				assert.Equal(t, convert.DefaultHTMLEndpoint, config.Conversion.HTMLEndpoint)
				assert.Equal(t, convert.DefaultSlimEndpoint, config.Conversion.SlimEndpoint)
				assert.Equal(t, "slim", config.Conversion.PreProcessor)
				assert.Equal(t, 30*time.Second, config.Conversion.Timeout)
				assert.Equal(t, int64(8<<20), config.Conversion.MaxResponseBytes)
				assert.Equal(t, "slim-to-html", config.Preview.Scheme)
				assert.Equal(t, 500*time.Millisecond, config.Preview.Debounce)
				assert.Equal(t, []string{"slim", "html"}, config.Preview.Kinds)
				assert.Equal(t, DefaultStyle, config.Preview.Style)
				assert.Equal(t, "info", config.Logging.Level)
				assert.Equal(t, "text", config.Logging.Format)
			},
		},
		{
			name: "custom values",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 3000)
				viper.Set("server.host", "0.0.0.0")
				viper.Set("conversion.timeout", "5s")
				viper.Set("preview.debounce", "250ms")
				viper.Set("preview.kinds", []string{"slim"})
				viper.Set("logging.level", "debug")
			},
			check: func(t *testing.T, config *Config) {
				assert.Equal(t, 3000, config.Server.Port)
				assert.Equal(t, "0.0.0.0", config.Server.Host)
				assert.Equal(t, 5*time.Second, config.Conversion.Timeout)
				assert.Equal(t, 250*time.Millisecond, config.Preview.Debounce)
				assert.Equal(t, []string{"slim"}, config.Preview.Kinds)
				assert.Equal(t, "debug", config.Logging.Level)
			},
		},
		{
			name: "no-open flag override",
			setup: func() {
				viper.Reset()
				viper.Set("server.open", true)
				viper.Set("server.no-open", true)
			},
			check: func(t *testing.T, config *Config) {
				assert.False(t, config.Server.Open)
			},
		},
		{
			name: "invalid viper config",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "port out of range",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "port zero",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 0)
			},
			expectError: true,
		},
		{
			name: "endpoint with unsupported scheme",
			setup: func() {
				viper.Reset()
				viper.Set("conversion.html_endpoint", "ftp://preprocessor.codepen.io")
			},
			expectError: true,
		},
		{
			name: "unknown kind",
			setup: func() {
				viper.Reset()
				viper.Set("preview.kinds", []string{"slim", "haml"})
			},
			expectError: true,
		},
		{
			name: "invalid scheme",
			setup: func() {
				viper.Reset()
				viper.Set("preview.scheme", "Slim To HTML")
			},
			expectError: true,
		},
		{
			name: "unknown log format",
			setup: func() {
				viper.Reset()
				viper.Set("logging.format", "xml")
			},
			expectError: true,
		},
		{
			name: "dangerous host",
			setup: func() {
				viper.Reset()
				viper.Set("server.host", "localhost;rm -rf /")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			config, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
				assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
			tt.check(t, config)
		})
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv("SLIMVIEW_SERVER_PORT", "9999")
	t.Setenv("SLIMVIEW_PREVIEW_DEBOUNCE", "1s")

	viper.Reset()
	defer viper.Reset()
	viper.SetEnvPrefix("SLIMVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	require.NoError(t, viper.BindEnv("server.port"))
	require.NoError(t, viper.BindEnv("preview.debounce"))

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, time.Second, config.Preview.Debounce)
}

func TestLoadFromFile(t *testing.T) {
	path := t.TempDir() + "/.slimview.yml"
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4000
  open: false
conversion:
  html_endpoint: https://render.example.com/slim
preview:
  kinds: [slim]
  read_only: true
`), 0o644))

	viper.Reset()
	defer viper.Reset()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, config.Server.Port)
	assert.False(t, config.Server.Open)
	assert.Equal(t, "https://render.example.com/slim", config.Conversion.HTMLEndpoint)
	assert.Equal(t, convert.DefaultSlimEndpoint, config.Conversion.SlimEndpoint)
	assert.Equal(t, []string{"slim"}, config.Preview.Kinds)
	assert.True(t, config.Preview.ReadOnly)
}

func TestTargetFiles(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config, err := Load()
	require.NoError(t, err)
	assert.Empty(t, config.TargetFiles)

	config.TargetFiles = []string{"views/home.slim"}
	assert.Equal(t, []string{"views/home.slim"}, config.TargetFiles)
}

func TestDerivedOptions(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("conversion.timeout", "10s")
	viper.Set("preview.read_only", true)
	viper.Set("logging.level", "warn")
	viper.Set("logging.format", "json")

	config, err := Load()
	require.NoError(t, err)

	conv := config.ConverterOptions()
	assert.Equal(t, convert.DefaultHTMLEndpoint, conv.HTMLEndpoint)
	assert.Equal(t, 10*time.Second, conv.Timeout)

	opts := config.PipelineOptions()
	assert.Equal(t, preview.DefaultScheme, opts.Scheme)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.True(t, opts.ReadOnly)

	logCfg := config.LoggerConfig()
	assert.Equal(t, logging.LevelWarn, logCfg.Level)
	assert.Equal(t, "json", logCfg.Format)
}
