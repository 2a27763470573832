package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"autocraft/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-reads the config file when it changes on disk and hands the
// fresh Config to a callback. The parent directory is watched rather than the
// file itself because editors replace files by rename.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    func(*Config)
	debounceDur time.Duration
	pendingAt   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for path. onChange runs on the watcher goroutine.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		path:        abs,
		onChange:    onChange,
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking.
func (cw *Watcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = true
	cw.mu.Unlock()

	if err := cw.watcher.Add(filepath.Dir(cw.path)); err != nil {
		return err
	}
	logging.Config("watching %s for changes", cw.path)

	go cw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for cleanup.
func (cw *Watcher) Stop() {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = false
	cw.mu.Unlock()

	close(cw.stopCh)
	<-cw.doneCh

	if err := cw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryConfig).Error("config watcher: error closing: %v", err)
	}
}

// Run blocks until ctx is cancelled. Convenience for errgroup callers.
func (cw *Watcher) Run(ctx context.Context) error {
	if err := cw.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	cw.Stop()
	return nil
}

func (cw *Watcher) run(ctx context.Context) {
	defer close(cw.doneCh)

	debounceTicker := time.NewTicker(50 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-cw.stopCh:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			cw.mu.Lock()
			cw.pendingAt = time.Now()
			cw.mu.Unlock()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConfig).Error("config watcher error: %v", err)

		case <-debounceTicker.C:
			cw.flush()
		}
	}
}

func (cw *Watcher) flush() {
	cw.mu.Lock()
	pending := !cw.pendingAt.IsZero() && time.Since(cw.pendingAt) >= cw.debounceDur
	if pending {
		cw.pendingAt = time.Time{}
	}
	cw.mu.Unlock()
	if !pending {
		return
	}

	cfg, err := Load(cw.path)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("config reload failed, keeping previous: %v", err)
		return
	}
	logging.Config("config reloaded from %s", cw.path)
	if cw.onChange != nil {
		cw.onChange(cfg)
	}
}
