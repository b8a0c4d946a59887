// Package fshost implements host.Workspace over files on disk.
//
// The active editor is a single source file. Changes to it are reported by
// a watcher.FileWatcher, and the virtual preview document is handed to a
// Presenter, normally the preview server, which shows it in a browser.
package fshost

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/conneroisu/slimview/internal/content"
	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/host"
	"github.com/conneroisu/slimview/internal/logging"
	"github.com/conneroisu/slimview/internal/preview"
	"github.com/conneroisu/slimview/internal/validation"
	"github.com/conneroisu/slimview/internal/watcher"
)

// SourceExtensions lists the extensions a source file may have.
var SourceExtensions = []string{".slim", ".html", ".htm"}

// Presenter displays the preview document and user-facing errors.
type Presenter interface {
	Present(ctx context.Context, uri string, column int, preserveFocus bool) error
	ShowError(ctx context.Context, message string)
}

// ReadOnlyPresenter is implemented by presenters that can lock the preview.
type ReadOnlyPresenter interface {
	SetReadOnly(readOnly bool)
}

// KindOf returns the document kind for path by extension.
func KindOf(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".slim":
		return preview.KindSlim, true
	case ".html", ".htm":
		return preview.KindHTML, true
	default:
		return "", false
	}
}

// FileDocument is a source document on disk.
type FileDocument struct {
	path string
	kind string
}

// Open validates path and returns it as a document.
func Open(path string) (*FileDocument, error) {
	abs, err := validation.ValidateSourceFile(path, SourceExtensions)
	if err != nil {
		return nil, err
	}
	kind, ok := KindOf(abs)
	if !ok {
		return nil, errors.ErrUnsupportedKind(filepath.Ext(abs)).WithPath(abs)
	}
	return &FileDocument{path: abs, kind: kind}, nil
}

// Path implements host.Document.
func (d *FileDocument) Path() string { return d.path }

// Kind implements host.Document.
func (d *FileDocument) Kind() string { return d.kind }

// Text implements host.Document by reading the file.
func (d *FileDocument) Text(ctx context.Context) (string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// VirtualDocument is a preview document backed by the content store.
type VirtualDocument struct {
	uri   string
	kind  string
	store *content.Store
}

// Path implements host.Document and returns the preview URI.
func (d *VirtualDocument) Path() string { return d.uri }

// Kind implements host.Document.
func (d *VirtualDocument) Kind() string { return d.kind }

// Text implements host.Document.
func (d *VirtualDocument) Text(ctx context.Context) (string, error) {
	return d.store.ProvideContent(d.uri), nil
}

// Host is a host.Workspace whose active editor is one file.
type Host struct {
	active    *FileDocument
	store     *content.Store
	presenter Presenter
	logger    logging.Logger
	listeners host.Listeners
	readOnly  atomic.Bool
}

// New creates a host for the source file at active.
func New(active string, store *content.Store, presenter Presenter, logger logging.Logger) (*Host, error) {
	doc, err := Open(active)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Host{
		active:    doc,
		store:     store,
		presenter: presenter,
		logger:    logger.WithComponent("fshost"),
	}, nil
}

// Active returns the source document.
func (h *Host) Active() *FileDocument {
	return h.active
}

// ActiveEditor implements host.Workspace. The source is always column 1.
func (h *Host) ActiveEditor(ctx context.Context) (host.Editor, bool) {
	return host.Editor{Document: h.active, Column: 1}, true
}

// OpenDocument implements host.Workspace for preview URIs.
func (h *Host) OpenDocument(ctx context.Context, uri string) (host.Document, error) {
	parsed, err := preview.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	kind := preview.KindSlim
	if k, ok := KindOf(parsed.Path); ok && k == preview.KindHTML {
		kind = preview.KindHTML
	}

	return &VirtualDocument{uri: uri, kind: kind, store: h.store}, nil
}

// ShowDocument implements host.Workspace by handing doc to the presenter.
func (h *Host) ShowDocument(ctx context.Context, doc host.Document, column int, preserveFocus bool) (host.Editor, error) {
	if h.presenter != nil {
		if err := h.presenter.Present(ctx, doc.Path(), column, preserveFocus); err != nil {
			return host.Editor{}, errors.NewHostError("failed to present preview", err).WithPath(doc.Path())
		}
	}
	return host.Editor{Document: doc, Column: column}, nil
}

// ShowErrorMessage implements host.Workspace.
func (h *Host) ShowErrorMessage(ctx context.Context, message string) {
	h.logger.Warn(ctx, nil, "Preview error", "message", message, "path", h.active.Path())
	if h.presenter != nil {
		h.presenter.ShowError(ctx, message)
	}
}

// OnDocumentChanged implements host.Workspace.
func (h *Host) OnDocumentChanged(listener func(host.Document)) host.Disposable {
	return h.listeners.Add(listener)
}

// MarkReadOnly implements host.ReadOnlyMarker.
func (h *Host) MarkReadOnly(ctx context.Context, editor host.Editor) error {
	h.readOnly.Store(true)
	if p, ok := h.presenter.(ReadOnlyPresenter); ok {
		p.SetReadOnly(true)
	}
	return nil
}

// ReadOnly reports whether the preview was opened read-only.
func (h *Host) ReadOnly() bool {
	return h.readOnly.Load()
}

// Watch reports changes to the source file through OnDocumentChanged. It
// watches the file's directory so editors that save by rename are seen.
func (h *Host) Watch(fw *watcher.FileWatcher) error {
	fw.AddFilter(watcher.PathFilter(h.active.Path()))
	fw.AddHandler(h.handleChanges)

	if err := fw.AddPath(filepath.Dir(h.active.Path())); err != nil {
		return errors.NewHostError("failed to watch source directory", err).WithPath(h.active.Path())
	}
	return nil
}

func (h *Host) handleChanges(events []watcher.ChangeEvent) error {
	for _, event := range events {
		if event.Type == watcher.EventTypeDeleted {
			h.logger.Debug(context.Background(), "Source removed", "path", event.Path)
			continue
		}
		h.listeners.Emit(h.active)
		return nil
	}
	return nil
}

// Changed emits a change event for the source file.
func (h *Host) Changed() {
	h.listeners.Emit(h.active)
}
