package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/slimview/internal/content"
	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/fshost"
	"github.com/conneroisu/slimview/internal/preview"
	"github.com/conneroisu/slimview/internal/server"
	"github.com/conneroisu/slimview/internal/validation"
	"github.com/conneroisu/slimview/internal/watcher"
)

// watchDelay batches filesystem events; the pipeline debounces on top.
const watchDelay = 50 * time.Millisecond

var serveFlags *StandardFlags

var serveCmd = &cobra.Command{
	Use:     "serve <file>",
	Aliases: []string{"s"},
	Short:   "Preview a Slim or HTML file in the browser",
	Long: `Start the preview server for one source file. The file is converted
whenever it changes on disk and the browser reloads with the result.

Examples:
  slimview serve page.slim              # Slim to HTML preview
  slimview serve page.html --port 9000  # HTML to Slim preview on port 9000
  slimview serve page.slim --no-open    # Don't open a browser`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddStandardFlags(serveCmd, "server")
	SetViperBindings(serveCmd, serverBindings)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := serveFlags.ValidateFlags(); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg.TargetFiles = args

	source, err := validation.ValidateSourceFile(args[0], fshost.SourceExtensions)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := content.NewStore()

	srv := server.New(server.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Open:           cfg.Server.Open,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Style:          cfg.Preview.Style,
	}, store, logger)

	h, err := fshost.New(source, store, srv, logger)
	if err != nil {
		return err
	}

	pipeline := preview.New(h, store, convert.NewHTTPConverter(cfg.ConverterOptions()), cfg.PipelineOptions(), logger)
	srv.SetPreviewer(pipeline)

	fw, err := watcher.NewFileWatcher(watchDelay, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Stop()

	if err := h.Watch(fw); err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	started := pipeline.Start()
	defer started.Dispose()

	go func() {
		if _, err := pipeline.PreviewDocument(ctx); err != nil {
			logger.Debug(ctx, "Initial preview failed", "error", err)
		}
	}()

	logger.Info(ctx, "Serving preview",
		"source", source,
		"url", srv.URL(),
		"read_only", cfg.Preview.ReadOnly)

	return srv.Start(ctx)
}
