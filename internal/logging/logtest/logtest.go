// Package logtest provides a recording slog handler for asserting on
// log output in tests.
package logtest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Entry is one captured log record.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]slog.Value
}

// Recorder is a slog.Handler that captures every record. Safe for
// concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	attrs   []slog.Attr
}

// New returns a logger that records everything it is given, plus the
// recorder to inspect afterwards.
func New() (*slog.Logger, *Recorder) {
	rec := &Recorder{}
	return slog.New(rec), rec
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, record slog.Record) error {
	entry := Entry{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   make(map[string]slog.Value),
	}
	for _, attr := range r.attrs {
		entry.Attrs[attr.Key] = attr.Value
	}
	record.Attrs(func(attr slog.Attr) bool {
		entry.Attrs[attr.Key] = attr.Value
		return true
	})

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Child handlers share the entry slice so tests see one stream.
	return &childRecorder{parent: r, attrs: append(append([]slog.Attr{}, r.attrs...), attrs...)}
}

func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// CountLevel returns how many records were captured at the given level.
func (r *Recorder) CountLevel(level slog.Level) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether any record's message contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, e := range r.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

type childRecorder struct {
	parent *Recorder
	attrs  []slog.Attr
}

func (c *childRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (c *childRecorder) Handle(ctx context.Context, record slog.Record) error {
	entry := Entry{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   make(map[string]slog.Value),
	}
	for _, attr := range c.attrs {
		entry.Attrs[attr.Key] = attr.Value
	}
	record.Attrs(func(attr slog.Attr) bool {
		entry.Attrs[attr.Key] = attr.Value
		return true
	})

	c.parent.mu.Lock()
	c.parent.entries = append(c.parent.entries, entry)
	c.parent.mu.Unlock()
	return nil
}

func (c *childRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &childRecorder{parent: c.parent, attrs: append(append([]slog.Attr{}, c.attrs...), attrs...)}
}

func (c *childRecorder) WithGroup(string) slog.Handler { return c }
