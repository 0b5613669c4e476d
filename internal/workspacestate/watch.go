package workspacestate

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"
)

const DefaultWatchDebounce = 50 * time.Millisecond

type Change struct {
	Path string `json:"path"`
	// Digest is the hex BLAKE3 digest of the new content, empty when the
	// file was removed.
	Digest string `json:"digest,omitempty"`
}

type WatcherOptions struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher reports content changes to a JSON state file. Editors and our own
// saves replace the file by rename, so the containing directory is watched
// and events are matched by name. A change is reported only when the
// content digest differs from the last one seen.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	digest [32]byte
	exists bool
}

func NewWatcher(path string, opts WatcherOptions) *Watcher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
	}
}

// Remember records the file's current content as seen, so a write the
// caller made itself is not reported back.
func (w *Watcher) Remember() {
	digest, exists, err := w.read()
	if err != nil {
		return
	}
	w.mu.Lock()
	w.digest, w.exists = digest, exists
	w.mu.Unlock()
}

// Run blocks until ctx is done, calling onChange from a single goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.Remember()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("state watcher error", "path", w.path, "error", err)
		case <-timer.C:
			change, changed := w.check()
			if changed {
				onChange(change)
			}
		}
	}
}

func (w *Watcher) check() (Change, bool) {
	digest, exists, err := w.read()
	if err != nil {
		w.logger.Warn("failed to read watched state", "path", w.path, "error", err)
		return Change{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if exists == w.exists && digest == w.digest {
		return Change{}, false
	}
	w.digest, w.exists = digest, exists
	change := Change{Path: w.path}
	if exists {
		change.Digest = hex.EncodeToString(digest[:])
	}
	return change, true
}

func (w *Watcher) read() ([32]byte, bool, error) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return [32]byte{}, false, nil
	}
	if err != nil {
		return [32]byte{}, false, err
	}
	return blake3.Sum256(data), true, nil
}
