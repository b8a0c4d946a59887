// Package content holds the converted output backing the virtual preview
// document and tells subscribers when it must be re-read.
//
// The store has a single content slot shared by every preview URI. A host
// that opens two previews at once sees the same text in both; callers that
// need isolation run one store per session.
package content

import (
	"sync"
)

// Store is the virtual document content provider.
type Store struct {
	content string
	version uint64
	mutex   sync.RWMutex

	subs      map[*Subscription]struct{}
	subsMutex sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		subs: make(map[*Subscription]struct{}),
	}
}

// SetContent replaces the stored content unconditionally.
// It does not notify; callers pair it with NotifyChanged.
func (s *Store) SetContent(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.content = text
	s.version++
}

// Content returns the stored content, "" before the first SetContent.
func (s *Store) Content() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.content
}

// Version counts SetContent calls.
func (s *Store) Version() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.version
}

// Snapshot returns content and version read atomically.
func (s *Store) Snapshot() (string, uint64) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.content, s.version
}

// ProvideContent answers a host read for uri. Every uri maps to the same slot.
func (s *Store) ProvideContent(uri string) string {
	return s.Content()
}

// NotifyChanged delivers uri to every open subscription without blocking.
func (s *Store) NotifyChanged(uri string) {
	s.subsMutex.Lock()
	defer s.subsMutex.Unlock()

	for sub := range s.subs {
		sub.deliver(uri)
	}
}

// Subscribe registers a change listener. Close the subscription to cancel.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{
		ch:    make(chan string, 1),
		store: s,
	}

	s.subsMutex.Lock()
	s.subs[sub] = struct{}{}
	s.subsMutex.Unlock()

	return sub
}

// Subscribers returns the number of open subscriptions.
func (s *Store) Subscribers() int {
	s.subsMutex.Lock()
	defer s.subsMutex.Unlock()
	return len(s.subs)
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.subsMutex.Lock()
	defer s.subsMutex.Unlock()

	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.ch)
	}
}

// Subscription receives the URIs passed to NotifyChanged.
//
// At most one notification is buffered. When the reader lags, the buffered
// URI is replaced by the newest one; the reader re-reads content anyway.
type Subscription struct {
	ch    chan string
	store *Store
	once  sync.Once
}

// C returns the notification channel. It is closed by Close.
func (sub *Subscription) C() <-chan string {
	return sub.ch
}

// Close cancels the subscription. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.store.unsubscribe(sub)
	})
}

// Dispose implements host.Disposable.
func (sub *Subscription) Dispose() {
	sub.Close()
}

// deliver must be called with the store's subsMutex held.
func (sub *Subscription) deliver(uri string) {
	select {
	case sub.ch <- uri:
		return
	default:
	}

	// Drop the stale notification and retry once.
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- uri:
	default:
	}
}
