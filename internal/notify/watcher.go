// Package notify provides the local realization of the object-created
// notification trigger: a filesystem watcher over the fsstore root that
// invokes a handler once per newly created object. Delivery is at-least-once;
// duplicate invocations are absorbed by the loader's idempotence.
package notify

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"graftwatch/internal/logger"
)

// Handler receives the store-relative key of one newly created object.
type Handler func(ctx context.Context, key string)

// Watcher watches an object store directory tree and fires the handler for
// each created .json object.
type Watcher struct {
	fsw     *fsnotify.Watcher
	handler Handler
	logger  *logger.Logger
	root    string
}

// NewWatcher creates a watcher over the given store root.
func NewWatcher(root string, handler Handler, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		handler: handler,
		logger:  log,
		root:    root,
	}

	// Watch the root and every existing subdirectory; new subdirectories are
	// picked up from create events as runs are written.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return fsw.Add(path)
		}

		return nil
	})
	if err != nil {
		fsw.Close()

		return nil, err
	}

	return w, nil
}

// Run blocks, dispatching created objects to the handler until the context is
// canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("watching object store", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Create) {
				continue
			}

			w.handleCreate(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Error("watch error", "error", err)
		}
	}
}

// handleCreate dispatches one create event. New directories are added to the
// watch set and scanned for objects written before the watch took effect;
// that scan can re-deliver an object the event path already delivered, which
// is within the at-least-once contract.
func (w *Watcher) handleCreate(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	if info.IsDir() {
		if err := w.fsw.Add(path); err != nil {
			w.logger.Error("failed to watch directory", "path", path, "error", err)

			return
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return
		}

		for _, entry := range entries {
			w.handleCreate(ctx, filepath.Join(path, entry.Name()))
		}

		return
	}

	if !strings.HasSuffix(path, ".json") {
		return
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		w.logger.Error("failed to resolve object key", "path", path, "error", err)

		return
	}

	w.handler(ctx, filepath.ToSlash(rel))
}
