// Package watch reloads a preset file whenever it changes on disk and pushes
// its values into the plugin from the watcher goroutine.
//
// The watcher is a control-side writer: it calls SetParameter, which only
// touches the lock-free transfer, so the audio side is never blocked by file
// I/O or YAML parsing.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kolkov/paramxfer/internal/logging"
	"github.com/kolkov/paramxfer/internal/preset"
)

// DefaultDebounce groups the burst of events most editors emit per save.
const DefaultDebounce = 50 * time.Millisecond

// Result describes one reload attempt.
type Result struct {
	Path    string
	Applied int
	Err     error
}

// Watcher reloads a single preset file on write/create events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	target   preset.Setter
	debounce time.Duration
	logger   *logging.Logger

	// onReload is called after every reload attempt (tests, UI refresh)
	onReload func(Result)

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce interval. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReloadCallback registers fn to be called after each reload attempt.
func WithReloadCallback(fn func(Result)) Option {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// New creates a watcher for the preset at path that applies to target.
//
// The parent directory is watched rather than the file so editors that save
// by rename-and-replace keep being tracked.
func New(path string, target preset.Setter, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preset path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		watcher:  fw,
		path:     abs,
		target:   target,
		debounce: DefaultDebounce,
		logger:   logging.NopLogger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("watch")
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Reload loads the preset now and applies it.
func (w *Watcher) Reload() Result {
	res := Result{Path: w.path}

	p, err := preset.Load(w.path)
	if err != nil {
		res.Err = err
		w.logger.Warn("preset reload failed", "path", w.path, "error", err)
	} else {
		res.Applied, res.Err = preset.Apply(p, w.target)
		if res.Err != nil {
			w.logger.Warn("preset apply failed", "path", w.path, "applied", res.Applied, "error", res.Err)
		} else {
			w.logger.Info("preset applied", "path", w.path, "name", p.Name, "parameters", res.Applied)
		}
	}

	if w.onReload != nil {
		w.onReload(res)
	}
	return res
}

// Start begins watching in a background goroutine. It returns once the loop
// is running; ctx cancellation or Stop ends it.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.loop(ctx)
}

// Stop ends the watch loop and releases the underlying watcher. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	close(w.stopCh)
	if started {
		<-w.doneCh
	}
	_ = w.watcher.Close()
}

// loop processes filesystem events.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	// Idle until the first event; a stopped timer never delivers.
	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.logger.Debug("preset changed", "op", event.Op.String())
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			w.Reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}
