package nvimhost

import (
	"context"
	stderrors "errors"

	"github.com/neovim/go-client/nvim/plugin"

	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/host"
)

// Command and autocommand names registered with Neovim.
const (
	CommandPreview         = "SlimPreview"
	CommandPreviewReadOnly = "SlimPreviewReadOnly"
	AutocmdEvents          = "TextChanged,TextChangedI"
	AutocmdPattern         = "*.slim,*.html"
	AutocmdGroup           = "SlimView"
)

// Previewer is the pipeline the plugin commands drive.
type Previewer interface {
	PreviewDocument(ctx context.Context) (host.Editor, error)
	PreviewDocumentReadOnly(ctx context.Context) (host.Editor, error)
}

// Register adds the preview commands and change autocommands to p.
//
// The command handlers return nothing, so Neovim sends them as
// notifications and never waits on a conversion.
func Register(p *plugin.Plugin, h *Host, previewer Previewer) {
	p.HandleCommand(&plugin.CommandOptions{Name: CommandPreview, NArgs: "0"},
		func() {
			runPreview(h, previewer.PreviewDocument)
		})

	p.HandleCommand(&plugin.CommandOptions{Name: CommandPreviewReadOnly, NArgs: "0"},
		func() {
			runPreview(h, previewer.PreviewDocumentReadOnly)
		})

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   AutocmdEvents,
		Group:   AutocmdGroup,
		Pattern: AutocmdPattern,
		Eval:    "expand('<afile>:p')",
	}, func(path string) {
		h.TextChanged(context.Background(), path)
	})
}

type errorShower interface {
	ShowErrorMessage(ctx context.Context, message string)
}

// runPreview shows the failures the pipeline hands back to its caller.
func runPreview(shower errorShower, preview func(context.Context) (host.Editor, error)) {
	ctx := context.Background()
	if _, err := preview(ctx); unreported(err) {
		shower.ShowErrorMessage(ctx, errors.UserMessage(err))
	}
}

// unreported reports whether err has not already gone through
// ShowErrorMessage.
func unreported(err error) bool {
	return err != nil && stderrors.Is(err, errors.ErrNoActiveEditor())
}
