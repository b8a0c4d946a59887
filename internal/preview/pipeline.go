package preview

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/slimview/internal/content"
	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/debounce"
	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/host"
	"github.com/conneroisu/slimview/internal/logging"
)

// DefaultDebounce is the quiet period before a change is converted.
const DefaultDebounce = 500 * time.Millisecond

// ErrInFlight reports an update dropped because a conversion is outstanding.
var ErrInFlight = stderrors.New("preview: conversion already in flight")

// Options configures a Pipeline.
type Options struct {
	Scheme   string
	Debounce time.Duration
	Kinds    []string
	Timeout  time.Duration
	ReadOnly bool
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	URI       string        `json:"uri,omitempty"`
	InFlight  bool          `json:"in_flight"`
	Version   uint64        `json:"version"`
	LastError *errors.Entry `json:"last_error,omitempty"`
}

// Pipeline converts the active document whenever it changes.
type Pipeline struct {
	workspace host.Workspace
	store     *content.Store
	converter convert.Converter
	logger    logging.Logger
	handler   *errors.ErrorHandler
	recorder  *errors.Recorder

	scheme   string
	delay    time.Duration
	kinds    map[string]struct{}
	timeout  time.Duration
	readOnly bool

	inFlight atomic.Bool

	currentURI URI
	started    host.Disposable
	mutex      sync.Mutex
}

// New creates a pipeline. Unset options take their defaults.
func New(
	workspace host.Workspace,
	store *content.Store,
	converter convert.Converter,
	opts Options,
	logger logging.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("preview")

	if opts.Scheme == "" {
		opts.Scheme = DefaultScheme
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Timeout <= 0 {
		opts.Timeout = convert.DefaultTimeout
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = DefaultKinds
	}

	kinds := make(map[string]struct{}, len(opts.Kinds))
	for _, kind := range opts.Kinds {
		kinds[strings.ToLower(kind)] = struct{}{}
	}

	return &Pipeline{
		workspace: workspace,
		store:     store,
		converter: converter,
		logger:    logger,
		handler:   errors.NewErrorHandler(logger, workspaceNotifier{workspace: workspace}),
		recorder:  errors.NewRecorder(16),
		scheme:    opts.Scheme,
		delay:     opts.Debounce,
		kinds:     kinds,
		timeout:   opts.Timeout,
		readOnly:  opts.ReadOnly,
	}
}

// Start subscribes the debounced change handler to the workspace. Dispose
// the returned handle, or call Close, to unsubscribe.
func (p *Pipeline) Start() host.Disposable {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started != nil {
		return p.started
	}

	debounced := debounce.New(p.delay, func(path string) {
		ctx := context.Background()
		if err := p.HandleDocumentChanged(ctx, path); err != nil && !stderrors.Is(err, ErrInFlight) {
			p.logger.Debug(ctx, "Debounced update failed", "path", path, "error", err)
		}
	})

	registration := p.workspace.OnDocumentChanged(func(doc host.Document) {
		if p.IsEligible(context.Background(), doc) {
			debounced.Call(doc.Path())
		}
	})

	var handle host.Disposable
	handle = host.DisposableFunc(func() {
		p.mutex.Lock()
		if p.started == handle {
			p.started = nil
		}
		p.mutex.Unlock()

		registration.Dispose()
		debounced.Stop()
	})
	p.started = handle

	p.logger.Info(context.Background(), "Preview pipeline started",
		"scheme", p.scheme,
		"debounce", p.delay.String())

	return handle
}

// Close stops listening for changes. Start may be called again afterwards.
func (p *Pipeline) Close() {
	p.mutex.Lock()
	started := p.started
	p.mutex.Unlock()

	if started != nil {
		started.Dispose()
	}
}

// IsEligible reports whether doc is of a watched kind and is the host's
// active document.
func (p *Pipeline) IsEligible(ctx context.Context, doc host.Document) bool {
	if doc == nil {
		return false
	}
	if _, ok := p.kinds[strings.ToLower(doc.Kind())]; !ok {
		return false
	}

	editor, ok := p.workspace.ActiveEditor(ctx)
	if !ok || editor.Document == nil {
		return false
	}

	return editor.Document.Path() == doc.Path()
}

// HandleDocumentChanged converts the active document and publishes the
// result under the preview URI derived from path. It is a no-op without an
// active editor and returns ErrInFlight when a conversion is outstanding.
func (p *Pipeline) HandleDocumentChanged(ctx context.Context, path string) error {
	editor, ok := p.workspace.ActiveEditor(ctx)
	if !ok || editor.Document == nil {
		p.logger.Debug(ctx, "No active editor, skipping update", "path", path)
		return nil
	}

	uri, err := PreviewURI(p.scheme, path, editor.Document.Kind())
	if err != nil {
		p.fail(ctx, err)
		return err
	}

	return p.update(ctx, editor, uri)
}

// FetchAndApply converts editor's document and publishes the result under
// the document's own preview URI.
func (p *Pipeline) FetchAndApply(ctx context.Context, editor host.Editor) error {
	if editor.Document == nil {
		return errors.ErrNoActiveEditor()
	}

	uri, err := PreviewURI(p.scheme, editor.Document.Path(), editor.Document.Kind())
	if err != nil {
		p.fail(ctx, err)
		return err
	}

	return p.update(ctx, editor, uri)
}

// PreviewDocument updates the preview of the active document and shows it
// in the column beside the source editor.
func (p *Pipeline) PreviewDocument(ctx context.Context) (host.Editor, error) {
	return p.preview(ctx, p.readOnly)
}

// PreviewDocumentReadOnly is PreviewDocument with the shown document locked
// against edits when the host supports it.
func (p *Pipeline) PreviewDocumentReadOnly(ctx context.Context) (host.Editor, error) {
	return p.preview(ctx, true)
}

func (p *Pipeline) preview(ctx context.Context, readOnly bool) (host.Editor, error) {
	editor, ok := p.workspace.ActiveEditor(ctx)
	if !ok || editor.Document == nil {
		return host.Editor{}, errors.ErrNoActiveEditor()
	}

	uri, err := PreviewURI(p.scheme, editor.Document.Path(), editor.Document.Kind())
	if err != nil {
		p.fail(ctx, err)
		return host.Editor{}, err
	}

	// Failures are already surfaced; the preview opens with the last good content.
	if err := p.update(ctx, editor, uri); err != nil && !stderrors.Is(err, ErrInFlight) {
		p.logger.Debug(ctx, "Preview opened without a fresh conversion", "uri", uri.String())
	}

	doc, err := p.workspace.OpenDocument(ctx, uri.String())
	if err != nil {
		e := errors.NewHostError("failed to open preview document", err).WithPath(uri.String())
		p.fail(ctx, e)
		return host.Editor{}, e
	}

	shown, err := p.workspace.ShowDocument(ctx, doc, DisplayColumn(editor.Column), false)
	if err != nil {
		e := errors.NewHostError("failed to show preview document", err).WithPath(uri.String())
		p.fail(ctx, e)
		return host.Editor{}, e
	}

	if readOnly {
		if marker, ok := p.workspace.(host.ReadOnlyMarker); ok {
			if err := marker.MarkReadOnly(ctx, shown); err != nil {
				p.logger.Warn(ctx, err, "Failed to mark preview read-only", "uri", uri.String())
			}
		}
	}

	p.setCurrentURI(uri)
	return shown, nil
}

// InFlight reports whether a conversion is outstanding.
func (p *Pipeline) InFlight() bool {
	return p.inFlight.Load()
}

// CurrentURI returns the URI of the last published or opened preview.
func (p *Pipeline) CurrentURI() (URI, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.currentURI, !p.currentURI.IsZero()
}

// LastError returns the most recent surfaced failure.
func (p *Pipeline) LastError() (errors.Entry, bool) {
	return p.recorder.Last()
}

// Status reports the pipeline state.
func (p *Pipeline) Status() Status {
	status := Status{
		InFlight: p.InFlight(),
		Version:  p.store.Version(),
	}
	if uri, ok := p.CurrentURI(); ok {
		status.URI = uri.String()
	}
	if entry, ok := p.LastError(); ok {
		status.LastError = &entry
	}
	return status
}

// Scheme returns the preview URI scheme.
func (p *Pipeline) Scheme() string {
	return p.scheme
}

func (p *Pipeline) update(ctx context.Context, editor host.Editor, uri URI) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug(ctx, "Conversion in flight, dropping update", "uri", uri.String())
		return ErrInFlight
	}
	defer p.inFlight.Store(false)

	text, err := p.fetch(ctx, editor)
	if err != nil {
		p.fail(ctx, err)
		return err
	}

	p.store.SetContent(text)
	p.setCurrentURI(uri)
	p.store.NotifyChanged(uri.String())

	return nil
}

// fetch reads the document, converts it and maps the result to text or a
// typed error. A panic while converting becomes an internal error.
func (p *Pipeline) fetch(ctx context.Context, editor host.Editor) (text string, err error) {
	doc := editor.Document

	op := logging.StartOperation(p.logger, "convert")
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.NewInternalError(fmt.Sprintf("conversion panicked: %v", r), nil).
				WithPath(doc.Path())
		}
		if err != nil {
			op.EndWithError(ctx, err, "path", doc.Path())
			return
		}
		op.End(ctx, "path", doc.Path(), "bytes", len(text))
	}()

	return ConvertDocument(ctx, p.converter, doc, p.timeout)
}

// ConvertDocument converts doc in the direction given by its kind and maps
// the service outcome to text or a typed error.
func ConvertDocument(ctx context.Context, converter convert.Converter, doc host.Document, timeout time.Duration) (string, error) {
	kind := doc.Kind()

	direction, ok := DirectionFor(kind)
	if !ok {
		return "", errors.ErrUnsupportedKind(kind).WithPath(doc.Path())
	}

	source, err := doc.Text(ctx)
	if err != nil {
		return "", errors.NewHostError("failed to read document", err).WithPath(doc.Path())
	}

	convCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := converter.Convert(convCtx, convert.Request{
		Direction: direction,
		Text:      source,
	})
	if err != nil {
		var pe *errors.PreviewError
		if stderrors.As(err, &pe) {
			return "", pe.WithPath(doc.Path())
		}
		return "", errors.NewTransportError("conversion request failed", err).WithPath(doc.Path())
	}

	switch r := result.(type) {
	case convert.Success:
		return r.Text, nil
	case convert.ServiceError:
		return "", errors.NewServiceError(r.Message).WithPath(doc.Path())
	case convert.MalformedResponse:
		return "", errors.NewMalformedError("Unable to generate "+kind, stderrors.New(r.Reason)).
			WithPath(doc.Path())
	default:
		return "", errors.NewMalformedError("Unable to generate "+kind, nil).WithPath(doc.Path())
	}
}

func (p *Pipeline) fail(ctx context.Context, err error) {
	p.recorder.Record(err)
	p.handler.Handle(ctx, err)
}

func (p *Pipeline) setCurrentURI(uri URI) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.currentURI = uri
}

// workspaceNotifier surfaces errors through the host's message channel.
type workspaceNotifier struct {
	workspace host.Workspace
}

func (n workspaceNotifier) NotifyError(ctx context.Context, err *errors.PreviewError) error {
	n.workspace.ShowErrorMessage(ctx, errors.UserMessage(err))
	return nil
}
