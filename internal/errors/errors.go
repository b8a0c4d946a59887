// Package errors defines the error taxonomy shared by the conversion
// pipeline, its hosts and the preview server.
//
// Conversion failures fall into three user-visible categories: transport
// failures, errors reported by the conversion service, and responses that
// could not be interpreted. Each is a *PreviewError with a Type and Code so
// callers can branch with errors.As and UserMessage.
package errors

import (
	"errors"
	"sync"
	"time"
)

// Severity represents the severity of a recorded error.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one recorded failure.
type Entry struct {
	Type      ErrorType `json:"type"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	Path      string    `json:"path,omitempty"`
	Severity  Severity  `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder keeps the most recent failures for status reporting.
type Recorder struct {
	entries []Entry
	limit   int
	mutex   sync.RWMutex
}

// NewRecorder creates a recorder holding at most limit entries.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 1
	}
	return &Recorder{
		entries: make([]Entry, 0, limit),
		limit:   limit,
	}
}

// Record stores err, evicting the oldest entry when full.
func (r *Recorder) Record(err error) {
	if err == nil {
		return
	}

	entry := Entry{
		Type:      TypeOf(err),
		Message:   UserMessage(err),
		Severity:  SeverityError,
		Timestamp: time.Now(),
	}
	var pe *PreviewError
	if errors.As(err, &pe) {
		entry.Code = pe.Code
		entry.Path = pe.Path
		if pe.Recoverable {
			entry.Severity = SeverityWarning
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.entries) == r.limit {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}
	r.entries = append(r.entries, entry)
}

// Last returns the most recent entry.
func (r *Recorder) Last() (Entry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// Entries returns a copy of all recorded entries, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	result := make([]Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// HasErrors returns true if anything was recorded.
func (r *Recorder) HasErrors() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.entries) > 0
}

// Clear drops all entries.
func (r *Recorder) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.entries = r.entries[:0]
}
