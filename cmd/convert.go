package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/fshost"
	"github.com/conneroisu/slimview/internal/logging"
	"github.com/conneroisu/slimview/internal/preview"
	"github.com/conneroisu/slimview/internal/validation"
)

var convertFlags *StandardFlags

var convertCmd = &cobra.Command{
	Use:     "convert <file>",
	Aliases: []string{"c"},
	Short:   "Convert a file once",
	Long: `Convert a Slim file to HTML, or an HTML file to Slim, and print the
result. The direction follows the file extension.

Examples:
  slimview convert page.slim               # Print the HTML
  slimview convert page.html -o page.slim  # Write the Slim to a file`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertFlags = AddStandardFlags(convertCmd, "output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	doc, err := fshost.Open(args[0])
	if err != nil {
		return err
	}
	source := doc.Path()

	ctx := cmd.Context()
	op := logging.StartOperation(logger, "convert")

	text, err := preview.ConvertDocument(ctx, convert.NewHTTPConverter(cfg.ConverterOptions()), doc, cfg.Conversion.Timeout)
	if err != nil {
		op.EndWithError(ctx, err, "path", source)
		return userError{err: err}
	}
	op.End(ctx, "path", source, "bytes", len(text))

	if convertFlags.Output == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}

	out, err := validation.ValidatePath(convertFlags.Output)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	logger.Info(ctx, "Converted",
		"source", source,
		"output", out,
		"kind", preview.DisplayName(preview.TargetKind(doc.Kind())))
	return nil
}

// userError prints as the message shown to users and unwraps to the typed
// error.
type userError struct {
	err error
}

func (e userError) Error() string { return errors.UserMessage(e.err) }

func (e userError) Unwrap() error { return e.err }
