// Package cmd provides the command-line interface for slimview with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	Values are resolved with the following precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. SLIMVIEW_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (SLIMVIEW_SERVER_PORT, etc.)
//	4. Configuration files (.slimview.yml) - lowest priority
//
// A .env file in the working directory is loaded before the environment is
// read, so SLIMVIEW_ variables may live there.
//
// Environment Variables:
//
//	SLIMVIEW_CONFIG_FILE: Path to custom configuration file
//	SLIMVIEW_SERVER_PORT: Override server port
//	SLIMVIEW_CONVERSION_HTML_ENDPOINT: Override the Slim to HTML service
//	And so on, following the SLIMVIEW_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/slimview/internal/config"
	"github.com/conneroisu/slimview/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "slimview",
	Short: "Live Slim and HTML preview",
	Long: `slimview converts the Slim or HTML document you are editing into the
other language through a remote conversion service and shows the result
beside it, updating as you type.

Quick Start:
  slimview serve page.slim        Preview a file in the browser
  slimview convert page.html      Convert once and print the result
  slimview nvim                   Run as a Neovim remote plugin

Configuration is read from .slimview.yml, SLIMVIEW_ environment variables
and flags.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .slimview.yml, can also use SLIMVIEW_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", config.DefaultLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultFormat, "log format (text, json)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. SLIMVIEW_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .slimview.yml in current directory
//
// Missing files are not an error; defaults apply.
func initConfig() {
	// A missing .env is the common case.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SLIMVIEW_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".slimview")
	}

	viper.SetEnvPrefix("SLIMVIEW")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads and validates the configuration and builds the logger
// it describes, writing to w.
func loadConfig(w io.Writer) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = w
	logCfg.Component = "slimview"

	return cfg, logging.NewLogger(logCfg), nil
}
