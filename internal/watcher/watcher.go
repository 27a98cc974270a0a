// Package watcher triggers re-annotation when watched source files change.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// defaultExcludes are directory basenames never worth watching.
var defaultExcludes = []string{
	"vendor", ".git", "node_modules", ".vscode", ".idea", "build", "dist", "tmp",
}

// ChangeHandler receives the deduplicated, sorted set of paths that changed
// during one debounce window.
type ChangeHandler func(paths []string)

// Options configures a Watcher.
type Options struct {
	Extensions  []string      // file extensions to react to, with dots
	ExcludeDirs []string      // directory basenames to skip, merged with defaults
	Debounce    time.Duration // 0 means 500ms
	Logger      *slog.Logger
}

// Watcher watches directory trees through fsnotify and coalesces event
// bursts into one handler call per quiet period. fsnotify watches are not
// recursive, so directories are added by walking and newly created
// directories are picked up from their create events.
type Watcher struct {
	fsw         *fsnotify.Watcher
	extensions  map[string]bool
	excludeDirs map[string]bool
	debounce    time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	handler ChangeHandler
	stopped bool
}

// New creates a Watcher. Call Add for each root, then Run.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = true
	}
	excl := make(map[string]bool, len(defaultExcludes)+len(opts.ExcludeDirs))
	for _, d := range defaultExcludes {
		excl[d] = true
	}
	for _, d := range opts.ExcludeDirs {
		excl[d] = true
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Watcher{
		fsw:         fsw,
		extensions:  exts,
		excludeDirs: excl,
		debounce:    opts.Debounce,
		logger:      opts.Logger,
		pending:     make(map[string]struct{}),
	}, nil
}

// Add watches root and every directory below it, skipping excluded names.
func (w *Watcher) Add(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.excludeDirs[filepath.Base(path)] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watcher: add %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks, invoking handler after each debounce window, until ctx is
// cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, handler ChangeHandler) error {
	w.mu.Lock()
	w.handler = handler
	w.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				w.stopTimer()
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.stopTimer()
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops the watcher; a blocked Run returns.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.excludeDirs[filepath.Base(event.Name)] {
				if err := w.Add(event.Name); err != nil {
					w.logger.Warn("watch new directory", "dir", event.Name, "error", err)
				}
			}
			return
		}
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.wantsFile(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) wantsFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".swp") {
		return false
	}
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	handler := w.handler
	w.mu.Unlock()

	sort.Strings(paths)
	w.logger.Debug("changes settled", "files", len(paths))
	handler(paths)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
