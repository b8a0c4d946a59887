package fshost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/slimview/internal/content"
	"github.com/conneroisu/slimview/internal/convert"
	"github.com/conneroisu/slimview/internal/host"
	"github.com/conneroisu/slimview/internal/logging"
	"github.com/conneroisu/slimview/internal/preview"
	"github.com/conneroisu/slimview/internal/watcher"
)

type presentCall struct {
	URI           string
	Column        int
	PreserveFocus bool
}

type recordingPresenter struct {
	mutex    sync.Mutex
	presents []presentCall
	errors   []string
	readOnly bool
	err      error
}

func (p *recordingPresenter) Present(ctx context.Context, uri string, column int, preserveFocus bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.err != nil {
		return p.err
	}
	p.presents = append(p.presents, presentCall{URI: uri, Column: column, PreserveFocus: preserveFocus})
	return nil
}

func (p *recordingPresenter) ShowError(ctx context.Context, message string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.errors = append(p.errors, message)
}

func (p *recordingPresenter) SetReadOnly(readOnly bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.readOnly = readOnly
}

func writeSource(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestKindOf(t *testing.T) {
	testCases := []struct {
		path string
		kind string
		ok   bool
	}{
		{"a.slim", preview.KindSlim, true},
		{"a.SLIM", preview.KindSlim, true},
		{"a.html", preview.KindHTML, true},
		{"a.htm", preview.KindHTML, true},
		{"a.md", "", false},
		{"slim", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			kind, ok := KindOf(tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestOpen(t *testing.T) {
	path := writeSource(t, "page.slim", "p Hello")

	doc, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path())
	assert.Equal(t, preview.KindSlim, doc.Kind())

	text, err := doc.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p Hello", text)

	_, err = Open(writeSource(t, "notes.md", "# hi"))
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.slim"))
	assert.Error(t, err)
}

func TestHostWorkspace(t *testing.T) {
	path := writeSource(t, "page.slim", "p Hello")
	store := content.NewStore()
	presenter := &recordingPresenter{}

	h, err := New(path, store, presenter, logging.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	editor, ok := h.ActiveEditor(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, editor.Column)
	assert.Equal(t, path, editor.Document.Path())

	uri := "slim-to-html://" + filepath.ToSlash(path) + ".html"
	doc, err := h.OpenDocument(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, uri, doc.Path())
	assert.Equal(t, preview.KindHTML, doc.Kind())

	store.SetContent("<p>Hello</p>")
	text, err := doc.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello</p>", text)

	shown, err := h.ShowDocument(ctx, doc, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, shown.Column)
	assert.Equal(t, []presentCall{{URI: uri, Column: 2}}, presenter.presents)

	h.ShowErrorMessage(ctx, "bad syntax")
	assert.Equal(t, []string{"bad syntax"}, presenter.errors)

	assert.False(t, h.ReadOnly())
	require.NoError(t, h.MarkReadOnly(ctx, shown))
	assert.True(t, h.ReadOnly())
	assert.True(t, presenter.readOnly)
}

func TestOpenDocumentRejectsInvalidURI(t *testing.T) {
	h, err := New(writeSource(t, "page.slim", "p"), content.NewStore(), nil, nil)
	require.NoError(t, err)

	_, err = h.OpenDocument(context.Background(), "not a uri")
	assert.Error(t, err)
}

func TestShowDocumentPresenterFailure(t *testing.T) {
	presenter := &recordingPresenter{err: fmt.Errorf("browser unavailable")}
	h, err := New(writeSource(t, "page.slim", "p"), content.NewStore(), presenter, nil)
	require.NoError(t, err)

	_, err = h.ShowDocument(context.Background(), h.Active(), 2, false)
	assert.Error(t, err)
}

func TestHandleChanges(t *testing.T) {
	h, err := New(writeSource(t, "page.slim", "p"), content.NewStore(), nil, nil)
	require.NoError(t, err)

	var got []host.Document
	h.OnDocumentChanged(func(doc host.Document) { got = append(got, doc) })

	require.NoError(t, h.handleChanges([]watcher.ChangeEvent{{Type: watcher.EventTypeDeleted}}))
	assert.Empty(t, got)

	require.NoError(t, h.handleChanges([]watcher.ChangeEvent{
		{Type: watcher.EventTypeModified},
		{Type: watcher.EventTypeCreated},
	}))
	require.Len(t, got, 1)
	assert.Equal(t, h.Active().Path(), got[0].Path())

	h.Changed()
	assert.Len(t, got, 2)
}

func TestWatchDrivesPipeline(t *testing.T) {
	path := writeSource(t, "page.slim", "p Hello")
	store := content.NewStore()
	presenter := &recordingPresenter{}

	h, err := New(path, store, presenter, nil)
	require.NoError(t, err)

	fw, err := watcher.NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()
	require.NoError(t, h.Watch(fw))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	conv := converterFunc(func(ctx context.Context, req convert.Request) (convert.Result, error) {
		return convert.Success{Text: "<p>" + req.Text + "</p>"}, nil
	})
	pipeline := preview.New(h, store, conv, preview.Options{Debounce: 20 * time.Millisecond}, nil)
	defer pipeline.Close()
	pipeline.Start()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("p Changed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.slim"), []byte("p other"), 0o644))

	require.Eventually(t, func() bool { return store.Content() == "<p>p Changed</p>" },
		3*time.Second, 10*time.Millisecond)
}

type converterFunc func(ctx context.Context, req convert.Request) (convert.Result, error)

func (f converterFunc) Convert(ctx context.Context, req convert.Request) (convert.Result, error) {
	return f(ctx, req)
}
