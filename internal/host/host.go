// Package host defines what the preview pipeline needs from an editor.
//
// A Workspace exposes the active editor, opens and shows documents, reports
// errors to the user and delivers document-change events. Implementations
// live in fshost (files on disk plus a browser preview) and nvimhost (a
// Neovim remote plugin).
package host

import (
	"context"
	"sync"
)

// Document is a text document owned by the host. The pipeline only reads it.
type Document interface {
	// Path identifies the document, normally an absolute file path.
	Path() string
	// Kind is the document's language identifier, such as "slim" or "html".
	Kind() string
	// Text returns the full current text.
	Text(ctx context.Context) (string, error)
}

// Editor is a document shown in a view column.
type Editor struct {
	Document Document
	Column   int
}

// Workspace is the host facade the pipeline calls.
type Workspace interface {
	ActiveEditor(ctx context.Context) (Editor, bool)
	OpenDocument(ctx context.Context, uri string) (Document, error)
	ShowDocument(ctx context.Context, doc Document, column int, preserveFocus bool) (Editor, error)
	ShowErrorMessage(ctx context.Context, message string)
	OnDocumentChanged(listener func(Document)) Disposable
}

// ReadOnlyMarker is implemented by hosts that can lock a shown document
// against edits.
type ReadOnlyMarker interface {
	MarkReadOnly(ctx context.Context, editor Editor) error
}

// Disposable releases a registration.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable. The function runs once.
func DisposableFunc(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	fn   func()
	once sync.Once
}

func (d *funcDisposable) Dispose() {
	d.once.Do(func() {
		if d.fn != nil {
			d.fn()
		}
	})
}

// Composite disposes its members in reverse order of addition.
type Composite struct {
	items []Disposable
	mutex sync.Mutex
}

// Add appends d. Nil values are ignored.
func (c *Composite) Add(d ...Disposable) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, item := range d {
		if item != nil {
			c.items = append(c.items, item)
		}
	}
}

// Dispose releases every member and empties the composite.
func (c *Composite) Dispose() {
	c.mutex.Lock()
	items := c.items
	c.items = nil
	c.mutex.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Listeners is a concurrency-safe set of document-change callbacks that
// Workspace implementations embed to satisfy OnDocumentChanged.
type Listeners struct {
	next      int
	listeners map[int]func(Document)
	mutex     sync.RWMutex
}

// Add registers listener and returns its removal handle.
func (l *Listeners) Add(listener func(Document)) Disposable {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.listeners == nil {
		l.listeners = make(map[int]func(Document))
	}
	id := l.next
	l.next++
	l.listeners[id] = listener

	return DisposableFunc(func() {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		delete(l.listeners, id)
	})
}

// Emit calls every registered listener with doc.
func (l *Listeners) Emit(doc Document) {
	l.mutex.RLock()
	snapshot := make([]func(Document), 0, len(l.listeners))
	for _, listener := range l.listeners {
		snapshot = append(snapshot, listener)
	}
	l.mutex.RUnlock()

	for _, listener := range snapshot {
		listener(doc)
	}
}

// Len returns the number of registered listeners.
func (l *Listeners) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.listeners)
}

// StaticDocument is an in-memory Document.
type StaticDocument struct {
	DocPath string
	DocKind string
	Content string
}

// Path implements Document.
func (d StaticDocument) Path() string { return d.DocPath }

// Kind implements Document.
func (d StaticDocument) Kind() string { return d.DocKind }

// Text implements Document.
func (d StaticDocument) Text(ctx context.Context) (string, error) { return d.Content, nil }
