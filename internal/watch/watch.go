// Package watch invalidates cached listings when the filesystem changes
// underneath them. The watcher covers the input root and its direct
// subfolders; deeper levels are outside the browsing model. Watching is an
// optimization on top of the cache TTL: if it cannot start, listings are
// still correct, just staler.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/cache"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
)

// Watcher wires fsnotify events to cache invalidation.
type Watcher struct {
	root    string
	cache   *cache.ListingCache
	log     *logging.Logger
	watcher *fsnotify.Watcher
}

// New creates a Watcher over root, registering the root and every existing
// direct subfolder.
func New(root string, c *cache.ListingCache, log *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if err := fsw.Add(filepath.Join(root, entry.Name())); err != nil {
				log.Warnf("cannot watch subfolder %s: %v", entry.Name(), err)
			}
		}
	}

	return &Watcher{
		root:    root,
		cache:   c,
		log:     log,
		watcher: fsw,
	}, nil
}

// Run consumes events until ctx is cancelled or the watcher closes.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watcher error: %v", err)
		}
	}
}

// handle maps one filesystem event to the cache entry it staled.
func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}

	parts := strings.Split(rel, string(filepath.Separator))
	switch len(parts) {
	case 1:
		// Entry directly under the root changed. A created directory is a new
		// subfolder: start watching it and drop its (possibly negative)
		// cached listing. Anything else stales the root listing.
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Warnf("cannot watch new subfolder: %v", err)
				}
				w.cache.Invalidate(parts[0])
				return
			}
		}
		w.cache.Invalidate("")
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			// A removed root entry may have been a subfolder.
			w.cache.Invalidate(parts[0])
		}
	case 2:
		w.cache.Invalidate(parts[0])
	}
}

// Close stops the underlying watcher; Run returns shortly after.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
