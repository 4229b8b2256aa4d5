// Package activity keeps a bounded, newest-first telemetry log of
// human-readable events for the operator console.
package activity

import (
	"fmt"
	"sync"
	"time"
)

// capacity bounds the retained entries; older lines are discarded.
const capacity = 50

// Entry is a single timestamped telemetry line.
type Entry struct {
	Ts      string
	Message string
}

// Log records events emitted by the engine and ledger. Record never blocks
// and never fails; overflow silently drops the oldest entries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewLog returns an empty telemetry log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Record prepends a timestamped entry and truncates to capacity.
func (l *Log) Record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{
		Ts:      l.now().Format("15:04:05"),
		Message: fmt.Sprintf(format, args...),
	}
	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > capacity {
		l.entries = l.entries[:capacity]
	}
}

// Entries returns a copy of the retained lines, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
