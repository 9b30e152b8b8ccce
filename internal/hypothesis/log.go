// Package hypothesis holds the growing transcript received from the
// speech-to-text pipeline as an append-only fragment log.
//
// The log is the single piece of mutable state between the network ingest
// side and the pure scoring engine: writers append fragments as they
// arrive, the scoring tick takes a snapshot. This keeps the engine a pure
// function of (reference, snapshot) and confines locking to one place.
package hypothesis

import (
	"strings"
	"sync"
)

// Log is an append-only sequence of transcript fragments.
// All methods are safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	fragments []string
}

// NewLog returns an empty fragment log.
func NewLog() *Log {
	return &Log{}
}

// Append adds one fragment to the log. Fragments that are empty after
// trimming are ignored.
func (l *Log) Append(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragments = append(l.fragments, fragment)
}

// Snapshot returns the accumulated hypothesis text: all fragments in
// arrival order joined with single spaces.
func (l *Log) Snapshot() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.fragments, " ")
}

// Len returns the number of fragments appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fragments)
}

// Reset discards all fragments, starting a fresh session.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragments = nil
}
