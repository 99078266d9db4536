package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/MojoAuth/connector-identity/internal/identity"
)

// fileWatcher re-registers the watched configuration files whenever one of
// them changes. Passes run as tasks on the app loop and never overlap a
// tracking window that is still open.
type fileWatcher struct {
	app   *app
	files []string

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending bool
	passes  int
}

func newFileWatcher(a *app, files []string) *fileWatcher {
	abs := make([]string, 0, len(files))
	for _, f := range files {
		if p, err := filepath.Abs(f); err == nil {
			abs = append(abs, p)
			continue
		}
		abs = append(abs, f)
	}
	return &fileWatcher{app: a, files: abs}
}

func (w *fileWatcher) start() error {
	if len(w.files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}

	// Directories are watched so that editors replacing files are noticed.
	dirs := make(map[string]struct{})
	for _, f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.watcher = watcher
	return nil
}

func (w *fileWatcher) run(ctx context.Context) error {
	if w.watcher == nil {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.watched(event.Name) || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.app.log.Debug("config file changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			w.requestPass(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.app.log.Error("file watcher error", slog.Any("error", err))
		}
	}
}

func (w *fileWatcher) close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// requestPass queues a registration pass unless one is already queued.
func (w *fileWatcher) requestPass(ctx context.Context) {
	w.mu.Lock()
	if w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = true
	w.mu.Unlock()

	w.app.loop.Defer(func() { w.pass(ctx) })
}

func (w *fileWatcher) pass(ctx context.Context) {
	// The previous window's clear is queued behind this task; run after it.
	if w.app.tracker.Size() > 0 {
		w.app.loop.Defer(func() { w.pass(ctx) })
		return
	}

	w.mu.Lock()
	w.pending = false
	w.passes++
	pass := w.passes
	w.mu.Unlock()

	var configs []namedConfig
	for _, f := range w.files {
		fileConfigs, err := readConfigFile(f)
		if err != nil {
			w.app.log.Error("failed to read connector configs", slog.String("file", f), slog.Any("error", err))
			continue
		}
		configs = append(configs, fileConfigs...)
	}

	duplicates := w.app.registerAll(ctx, configs, func(source string, id identity.InstanceID, err error) {
		if err == nil {
			w.app.log.Info("connector instance registered", slog.String("source", source), slog.String("instance_id", id.String()))
		}
	})

	w.app.log.Info("registration pass finished",
		slog.Int("pass", pass),
		slog.Int("configs", len(configs)),
		slog.Int("duplicates", duplicates),
		slog.String("window_id", w.app.tracker.WindowID()),
	)
}

func (w *fileWatcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, f := range w.files {
		if f == abs {
			return true
		}
	}
	return false
}
