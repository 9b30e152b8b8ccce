package script

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors a script file for changes and calls a callback when the
// file is modified. It uses polling (not fsnotify) to keep dependencies
// minimal; script swaps during a broadcast are rare and a few seconds of
// latency is acceptable.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new string)

	mu       sync.Mutex
	current  string
	done     chan struct{}
	stopOnce sync.Once

	// last known file state for change detection
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher creates a script file watcher. It loads the initial script
// immediately and starts polling in a background goroutine.
func NewWatcher(path string, onChange func(old, new string), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	text, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("script: watcher initial load: %w", err)
	}
	w.current = text
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid script text.
func (w *Watcher) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll runs in a background goroutine, checking the script file periodically.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reads the script file and, if it has changed and is valid, calls
// onChange and updates the current text.
func (w *Watcher) check() {
	// Quick mtime check first to avoid hashing unchanged files.
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("script watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	text, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		slog.Warn("script watcher: failed to load script", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()

	if hash == w.lastHash {
		// File was touched but content is identical.
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}

	old := w.current
	w.current = text
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	slog.Info("script watcher: reference script reloaded", "path", w.path)

	// Invoke the callback outside the lock so it can safely call Current().
	if w.onChange != nil {
		w.onChange(old, text)
	}
}

// loadAndHash reads the script file, parses it, and returns the text
// alongside the file's SHA-256 hash and modification time. If the file is
// invalid, it returns an error (the caller keeps the old text).
func (w *Watcher) loadAndHash() (string, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", zeroHash, time.Time{}, err
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return "", zeroHash, time.Time{}, err
	}

	text, err := Parse(data)
	if err != nil {
		return "", zeroHash, time.Time{}, err
	}

	return text, sha256.Sum256(data), info.ModTime(), nil
}
