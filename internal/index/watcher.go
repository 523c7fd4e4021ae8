package index

import (
	"context"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/nestmaid/internal/metrics"
	"github.com/starford/nestmaid/internal/storage"
)

// Watcher event kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
	// EventDefinitionsChanged is emitted by the Indexer when the definition
	// blocks of a document changed, not just its root diagram.
	EventDefinitionsChanged = "definitions"
)

// writeDebounce is how long a path must stay quiet after a Create or Write
// before it is resolved.
const writeDebounce = 150 * time.Millisecond

// EventCallback is called after an index change.
type EventCallback func(kind string, path string)

func notify(cb EventCallback, kind, path string) {
	metrics.WatcherEventsTotal.WithLabelValues(kind).Inc()
	if cb != nil {
		cb(kind, path)
	}
}

// indexAndNotify indexes one file and reports kind. Definitions events come
// from the Indexer itself.
func indexAndNotify(ix *Indexer, store storage.Provider, rel, kind string, logger *slog.Logger, cb EventCallback) {
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if _, err := ix.IndexFile(rel, data); err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	notify(cb, kind, rel)
}

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// Creates and writes are debounced, so a burst of events for one save
// resolves the document once. New directories created at runtime are
// automatically added to the watch list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, ix *Indexer, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	// Creates and writes are collected per path and indexed once the vault
	// has been quiet for writeDebounce. A pending create stays a create.
	pending := make(map[string]string)
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleIndex := func(rel, kind string) {
		if pending[rel] != EventCreated {
			pending[rel] = kind
		}
		if flushTimer == nil {
			flushTimer = time.NewTimer(writeDebounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(writeDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(ix, store, logger, cb)

		case <-flushCh:
			for _, rel := range slices.Sorted(maps.Keys(pending)) {
				indexAndNotify(ix, store, rel, pending[rel], logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Index any documents already in the new directory.
					indexNewDir(ix, store, vaultRoot, absPath, logger, cb)
					continue
				}
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}

			// Only process diagram documents from here on.
			if !store.IsDocument(rel) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				scheduleIndex(rel, kind)

			case ev.Op&fsnotify.Remove != 0:
				delete(pending, rel)
				if delErr := ix.Forget(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				notify(cb, EventDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We delete the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				delete(pending, rel)
				if delErr := ix.Forget(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					notify(cb, EventDeleted, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileAfterRename does a lightweight sync using batch lookups:
// finds index entries without a corresponding file on disk and removes them,
// and finds on-disk files that are not indexed and indexes them.
func reconcileAfterRename(ix *Indexer, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := ix.db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := ix.Forget(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				notify(cb, EventDeleted, p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		kind := EventCreated
		if _, indexed := checksums[p]; indexed {
			kind = EventUpdated
		}
		indexAndNotify(ix, store, p, kind, logger, cb)
	}
}

// indexNewDir indexes any documents found in a newly created directory.
func indexNewDir(ix *Indexer, store storage.Provider, vaultRoot, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil || !store.IsDocument(rel) {
			return nil
		}
		indexAndNotify(ix, store, rel, EventCreated, logger, cb)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
