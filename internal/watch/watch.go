// Package watch monitors a collection tree for metadata changes and triggers
// debounced rebuilds. Events within the debounce window coalesce into one
// rebuild.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/colldocs/internal/logfields"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 2 * time.Second

// Rebuild is invoked after the debounce window closes. Errors are logged,
// not propagated; the watcher keeps running.
type Rebuild func(ctx context.Context) error

// Watcher monitors the collection root for plugin metadata changes.
type Watcher struct {
	root     string
	debounce time.Duration
	rebuild  Rebuild

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	stopChan    chan struct{}
	triggerChan chan struct{}
	stopped     bool
}

// New creates a watcher over the collection rooted at root.
func New(root string, debounce time.Duration, rebuild Rebuild) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to resolve collection path: %w", err)
	}
	return &Watcher{
		root:        absRoot,
		debounce:    debounce,
		rebuild:     rebuild,
		watcher:     fsw,
		stopChan:    make(chan struct{}),
		triggerChan: make(chan struct{}, 1),
	}, nil
}

// Start registers the watched directories and launches the event and rebuild
// loops. Watching directories rather than files survives editor save
// strategies that replace the file.
func (w *Watcher) Start(ctx context.Context) error {
	dirs, err := w.watchDirs()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	slog.Info("Watching collection for changes",
		logfields.Path(w.root),
		logfields.Count(len(dirs)),
		slog.Duration("debounce", w.debounce))

	go w.eventLoop(ctx)
	go w.rebuildLoop(ctx)
	return nil
}

// Stop shuts the watcher down. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", logfields.Error(err))
	}
}

// watchDirs collects the directories holding documentable metadata: the
// collection root (galaxy.yml), every plugin type directory, and each role's
// meta directory.
func (w *Watcher) watchDirs() ([]string, error) {
	dirs := []string{w.root}

	pluginsDir := filepath.Join(w.root, "plugins")
	err := filepath.WalkDir(pluginsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // absent plugins/ is fine
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", pluginsDir, err)
	}

	rolesDir := filepath.Join(w.root, "roles")
	err = filepath.WalkDir(rolesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && filepath.Base(path) == "meta" {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", rolesDir, err)
	}
	return dirs, nil
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			slog.Debug("Metadata change detected",
				logfields.File(event.Name),
				slog.String("op", event.Op.String()))
			w.trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.triggerChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				slog.Info("Rebuilding documentation after change")
				if err := w.rebuild(ctx); err != nil {
					slog.Error("Rebuild failed", logfields.Error(err))
				}
			})
		}
	}
}

// trigger requests a debounced rebuild. A pending trigger absorbs new ones.
func (w *Watcher) trigger() {
	select {
	case w.triggerChan <- struct{}{}:
	default:
	}
}

// relevant reports whether an event should trigger a rebuild: writes,
// creates, removals, and renames of YAML metadata files.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}
