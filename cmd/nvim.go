package cmd

import (
	"context"
	"os"

	"github.com/neovim/go-client/nvim/plugin"
	"github.com/spf13/cobra"

	"github.com/conneroisu/slimview/internal/content"
	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/nvimhost"
	"github.com/conneroisu/slimview/internal/preview"
)

var nvimCmd = &cobra.Command{
	Use:   "nvim",
	Short: "Run as a Neovim remote plugin",
	Long: `Serve the Neovim remote plugin protocol over stdin and stdout.

The plugin adds :SlimPreview and :SlimPreviewReadOnly, and converts the
current .slim or .html buffer as it changes. Logs go to stderr because
stdout carries the RPC stream.`,
	DisableFlagParsing: true,
	RunE:               runNvim,
}

func init() {
	rootCmd.AddCommand(nvimCmd)
}

func runNvim(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	// plugin.Main parses its own flags, such as -manifest, from os.Args.
	os.Args = append([]string{os.Args[0]}, args...)

	store := content.NewStore()
	converter := convert.NewHTTPConverter(cfg.ConverterOptions())

	plugin.Main(func(p *plugin.Plugin) error {
		h := nvimhost.New(p.Nvim, store, cfg.Preview.Scheme, logger)
		pipeline := preview.New(h, store, converter, cfg.PipelineOptions(), logger)

		h.Start()
		pipeline.Start()

		nvimhost.Register(p, h, pipeline)
		logger.Info(context.Background(), "Neovim plugin registered",
			"commands", []string{nvimhost.CommandPreview, nvimhost.CommandPreviewReadOnly})
		return nil
	})
	return nil
}
