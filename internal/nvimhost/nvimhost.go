// Package nvimhost implements host.Workspace inside Neovim.
//
// slimview runs as a remote plugin: the current buffer is the active
// editor, previews are scratch buffers named by their preview URI, and the
// buffer text is refreshed from the Content Store on every notification.
package nvimhost

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/neovim/go-client/nvim"

	"github.com/conneroisu/slimview/internal/content"
	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/host"
	"github.com/conneroisu/slimview/internal/logging"
	"github.com/conneroisu/slimview/internal/preview"
)

// API is the subset of *nvim.Nvim the host calls.
type API interface {
	CurrentBuffer() (nvim.Buffer, error)
	BufferName(buffer nvim.Buffer) (string, error)
	BufferLines(buffer nvim.Buffer, start, end int, strict bool) ([][]byte, error)
	BufferOption(buffer nvim.Buffer, name string, result interface{}) error
	SetBufferOption(buffer nvim.Buffer, name string, value interface{}) error
	CreateBuffer(listed, scratch bool) (nvim.Buffer, error)
	SetBufferName(buffer nvim.Buffer, name string) error
	SetBufferLines(buffer nvim.Buffer, start, end int, strict bool, replacement [][]byte) error
	CurrentWindow() (nvim.Window, error)
	SetCurrentWindow(window nvim.Window) error
	Eval(expr string, result interface{}) error
	Command(cmd string) error
	WritelnErr(str string) error
}

var _ API = (*nvim.Nvim)(nil)

// BufferDocument is a Neovim buffer.
type BufferDocument struct {
	api    API
	buffer nvim.Buffer
	name   string
	kind   string
}

// Path implements host.Document.
func (d *BufferDocument) Path() string { return d.name }

// Kind implements host.Document.
func (d *BufferDocument) Kind() string { return d.kind }

// Buffer returns the buffer handle.
func (d *BufferDocument) Buffer() nvim.Buffer { return d.buffer }

// Text implements host.Document.
func (d *BufferDocument) Text(ctx context.Context) (string, error) {
	lines, err := d.api.BufferLines(d.buffer, 0, -1, true)
	if err != nil {
		return "", errors.NewHostError("failed to read buffer", err).WithPath(d.name)
	}
	return JoinLines(lines), nil
}

// Host is a host.Workspace over a Neovim instance.
type Host struct {
	api       API
	store     *content.Store
	scheme    string
	logger    logging.Logger
	listeners host.Listeners

	previews map[string]nvim.Buffer
	mutex    sync.Mutex

	sub  *content.Subscription
	done chan struct{}
	once sync.Once
}

// New creates a host over api. scheme is the preview URI scheme; buffers
// named with it are previews and never active editors.
func New(api API, store *content.Store, scheme string, logger logging.Logger) *Host {
	if logger == nil {
		logger = logging.NewNop()
	}
	if scheme == "" {
		scheme = preview.DefaultScheme
	}
	return &Host{
		api:      api,
		store:    store,
		scheme:   scheme,
		logger:   logger.WithComponent("nvimhost"),
		previews: make(map[string]nvim.Buffer),
		done:     make(chan struct{}),
	}
}

// Start refreshes preview buffers whenever the store announces new content.
func (h *Host) Start() {
	h.mutex.Lock()
	if h.sub != nil {
		h.mutex.Unlock()
		return
	}
	h.sub = h.store.Subscribe()
	sub := h.sub
	h.mutex.Unlock()

	go func() {
		for {
			select {
			case <-h.done:
				return
			case uri, ok := <-sub.C():
				if !ok {
					return
				}
				if err := h.Refresh(uri); err != nil {
					h.logger.Warn(context.Background(), err, "Failed to refresh preview", "uri", uri)
				}
			}
		}
	}()
}

// Close stops refreshing previews.
func (h *Host) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mutex.Lock()
		if h.sub != nil {
			h.sub.Close()
		}
		h.mutex.Unlock()
	})
}

// IsPreview reports whether name is a preview buffer name.
func (h *Host) IsPreview(name string) bool {
	return strings.HasPrefix(name, h.scheme+":")
}

// ActiveEditor implements host.Workspace. Preview buffers and unnamed
// buffers are never active.
func (h *Host) ActiveEditor(ctx context.Context) (host.Editor, bool) {
	buf, err := h.api.CurrentBuffer()
	if err != nil {
		h.logger.Debug(ctx, "No current buffer", "error", err)
		return host.Editor{}, false
	}

	name, err := h.api.BufferName(buf)
	if err != nil || name == "" || h.IsPreview(name) {
		return host.Editor{}, false
	}

	var filetype string
	if err := h.api.BufferOption(buf, "filetype", &filetype); err != nil {
		h.logger.Debug(ctx, "Failed to read filetype", "buffer", int(buf), "error", err)
	}

	column := 1
	if err := h.api.Eval("winnr()", &column); err != nil || column < 1 {
		column = 1
	}

	return host.Editor{
		Document: &BufferDocument{
			api:    h.api,
			buffer: buf,
			name:   name,
			kind:   KindOf(filetype, name),
		},
		Column: column,
	}, true
}

// OpenDocument implements host.Workspace. It finds or creates the nofile
// scratch buffer named uri and fills it from the store.
func (h *Host) OpenDocument(ctx context.Context, uri string) (host.Document, error) {
	parsed, err := preview.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	kind := KindOf("", parsed.Path)
	if kind == "" {
		kind = preview.KindSlim
	}

	h.mutex.Lock()
	buf, ok := h.previews[uri]
	h.mutex.Unlock()

	if !ok {
		buf, err = h.createScratch(uri, kind)
		if err != nil {
			return nil, errors.NewHostError("failed to create preview buffer", err).WithPath(uri)
		}
		h.mutex.Lock()
		h.previews[uri] = buf
		h.mutex.Unlock()
	}

	doc := &BufferDocument{api: h.api, buffer: buf, name: uri, kind: kind}
	if err := h.fill(buf, h.store.ProvideContent(uri)); err != nil {
		return nil, errors.NewHostError("failed to fill preview buffer", err).WithPath(uri)
	}
	return doc, nil
}

func (h *Host) createScratch(uri, kind string) (nvim.Buffer, error) {
	buf, err := h.api.CreateBuffer(false, true)
	if err != nil {
		return 0, err
	}
	if err := h.api.SetBufferName(buf, uri); err != nil {
		return 0, err
	}

	options := []struct {
		name  string
		value interface{}
	}{
		{"buftype", "nofile"},
		{"bufhidden", "hide"},
		{"swapfile", false},
		{"filetype", kind},
	}
	for _, opt := range options {
		if err := h.api.SetBufferOption(buf, opt.name, opt.value); err != nil {
			return 0, fmt.Errorf("set %s: %w", opt.name, err)
		}
	}
	return buf, nil
}

// fill replaces the buffer text. Read-only previews are unlocked for the
// write and locked again.
func (h *Host) fill(buf nvim.Buffer, text string) error {
	modifiable := true
	if err := h.api.BufferOption(buf, "modifiable", &modifiable); err != nil {
		modifiable = true
	}
	if !modifiable {
		if err := h.api.SetBufferOption(buf, "modifiable", true); err != nil {
			return err
		}
		defer func() { _ = h.api.SetBufferOption(buf, "modifiable", false) }()
	}
	return h.api.SetBufferLines(buf, 0, -1, true, SplitLines(text))
}

// Refresh rewrites the preview buffer for uri, if one is open.
func (h *Host) Refresh(uri string) error {
	h.mutex.Lock()
	buf, ok := h.previews[uri]
	h.mutex.Unlock()
	if !ok {
		return nil
	}
	return h.fill(buf, h.store.ProvideContent(uri))
}

// ShowDocument implements host.Workspace. Column n is the nth window of
// the current tab; a vertical split is opened when it does not exist yet.
func (h *Host) ShowDocument(ctx context.Context, doc host.Document, column int, preserveFocus bool) (host.Editor, error) {
	bd, ok := doc.(*BufferDocument)
	if !ok {
		opened, err := h.OpenDocument(ctx, doc.Path())
		if err != nil {
			return host.Editor{}, err
		}
		bd = opened.(*BufferDocument)
	}

	previous, err := h.api.CurrentWindow()
	if err != nil {
		return host.Editor{}, errors.NewHostError("failed to read current window", err)
	}

	var count int
	if err := h.api.Eval("winnr('$')", &count); err != nil {
		return host.Editor{}, errors.NewHostError("failed to count windows", err)
	}

	for _, cmd := range WindowCommands(column, count, int(bd.buffer)) {
		if err := h.api.Command(cmd); err != nil {
			return host.Editor{}, errors.NewHostError("failed to show preview", err).
				WithPath(bd.name).
				WithContext("command", cmd)
		}
	}

	if preserveFocus {
		if err := h.api.SetCurrentWindow(previous); err != nil {
			h.logger.Warn(ctx, err, "Failed to restore focus")
		}
	}

	return host.Editor{Document: bd, Column: column}, nil
}

// ShowErrorMessage implements host.Workspace.
func (h *Host) ShowErrorMessage(ctx context.Context, message string) {
	h.logger.Warn(ctx, nil, "Preview error", "message", message)
	if err := h.api.WritelnErr("slimview: " + message); err != nil {
		h.logger.Error(ctx, err, "Failed to write error message")
	}
}

// OnDocumentChanged implements host.Workspace.
func (h *Host) OnDocumentChanged(listener func(host.Document)) host.Disposable {
	return h.listeners.Add(listener)
}

// MarkReadOnly implements host.ReadOnlyMarker.
func (h *Host) MarkReadOnly(ctx context.Context, editor host.Editor) error {
	bd, ok := editor.Document.(*BufferDocument)
	if !ok {
		return nil
	}
	if err := h.api.SetBufferOption(bd.buffer, "modifiable", false); err != nil {
		return errors.NewHostError("failed to lock preview buffer", err).WithPath(bd.name)
	}
	return h.api.SetBufferOption(bd.buffer, "readonly", true)
}

// TextChanged reports a change in the buffer named path. Only the current
// buffer is reported; autocommands fire there.
func (h *Host) TextChanged(ctx context.Context, path string) {
	if h.IsPreview(path) {
		return
	}
	editor, ok := h.ActiveEditor(ctx)
	if !ok || editor.Document.Path() != path {
		return
	}
	h.listeners.Emit(editor.Document)
}

// KindOf maps a filetype, or failing that the name's extension, to a
// document kind. Other filetypes are returned lowercased as their own kind.
func KindOf(filetype, name string) string {
	switch strings.ToLower(filetype) {
	case preview.KindSlim:
		return preview.KindSlim
	case preview.KindHTML, "xhtml":
		return preview.KindHTML
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".slim":
		return preview.KindSlim
	case ".html", ".htm":
		return preview.KindHTML
	}
	return strings.ToLower(filetype)
}

// WindowCommands returns the Ex commands that show buffer in window column
// when count windows exist.
func WindowCommands(column, count, buffer int) []string {
	if column < 1 {
		column = 1
	}
	var cmds []string
	if column > count {
		cmds = append(cmds, fmt.Sprintf("%dwincmd w", max(count, 1)), "rightbelow vsplit")
	} else {
		cmds = append(cmds, fmt.Sprintf("%dwincmd w", column))
	}
	return append(cmds, fmt.Sprintf("buffer %d", buffer))
}

// SplitLines converts text to buffer lines. A trailing newline does not
// add an empty last line.
func SplitLines(text string) [][]byte {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	parts := strings.Split(text, "\n")
	lines := make([][]byte, len(parts))
	for i, p := range parts {
		lines[i] = []byte(p)
	}
	return lines
}

// JoinLines converts buffer lines to text.
func JoinLines(lines [][]byte) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}
