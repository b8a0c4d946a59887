package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/slimview/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the configuration file,
SLIMVIEW_ environment variables and flags have been applied. The result is
validated first, so this also checks a configuration file.

Examples:
  slimview config                  # Show configuration as YAML
  slimview config --format json    # Show configuration as JSON`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if err := ValidateFormat(configFormat, "yaml", "json"); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if file := viper.ConfigFileUsed(); file != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "# Configuration file: %s\n", file)
	}

	return writeFormatted(cmd.OutOrStdout(), configFormat, cfg)
}

// writeFormatted encodes v as yaml or json.
func writeFormatted(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
