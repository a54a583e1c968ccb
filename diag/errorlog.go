// Package diag keeps the most recent classified errors in memory for
// diagnostics and export.
package diag

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 100

// Entry is one logged failure with its request context.
type Entry struct {
	Descriptor apierr.Descriptor `json:"descriptor"`
	RequestID  string            `json:"request_id,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	RetryCount int               `json:"retry_count"`
}

// ErrorLog is a fixed-size ring buffer. The oldest entry is overwritten
// once it is full.
type ErrorLog struct {
	mu    sync.Mutex
	buf   []Entry
	next  int
	full  bool
	total uint64
}

func NewErrorLog(capacity int) *ErrorLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ErrorLog{buf: make([]Entry, capacity)}
}

// Record appends e.
func (l *ErrorLog) Record(e Entry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = e
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
	l.total++
}

// Entries returns the retained entries, oldest first.
func (l *ErrorLog) Entries() []Entry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		out := make([]Entry, l.next)
		copy(out, l.buf[:l.next])
		return out
	}
	out := make([]Entry, 0, len(l.buf))
	out = append(out, l.buf[l.next:]...)
	out = append(out, l.buf[:l.next]...)
	return out
}

// Len returns the number of retained entries.
func (l *ErrorLog) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.buf)
	}
	return l.next
}

// Total returns how many entries were ever recorded.
func (l *ErrorLog) Total() uint64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Clear drops every retained entry. Total is kept.
func (l *ErrorLog) Clear() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	l.next = 0
	l.full = false
}

type exportDocument struct {
	ExportedAt time.Time `json:"exported_at"`
	Total      uint64    `json:"total"`
	Entries    []Entry   `json:"entries"`
}

// Export writes the retained entries as one indented JSON document.
func (l *ErrorLog) Export(w io.Writer, now time.Time) error {
	doc := exportDocument{
		ExportedAt: now,
		Total:      l.Total(),
		Entries:    l.Entries(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
