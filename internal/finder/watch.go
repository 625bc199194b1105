package finder

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PackageRootWatcher watches resolved package root directories for on-disk
// changes, so callers holding a cache keyed by package root (the import
// resolver's TTL'd cache, the Python semantic index's bounded LRU) can
// invalidate it the moment a file changes instead of serving a stale entry
// until it expires or is evicted.
type PackageRootWatcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	watched map[string]struct{}

	// OnChange is invoked with a watched root's path whenever a file
	// inside it is created, written, removed or renamed. Set before
	// calling Watch; changing it concurrently with events is not
	// supported.
	OnChange func(root string)
}

// NewPackageRootWatcher starts an fsnotify watcher with no roots watched yet.
func NewPackageRootWatcher(logger *slog.Logger) (*PackageRootWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw := &PackageRootWatcher{watcher: w, logger: logger, watched: make(map[string]struct{})}
	go pw.run()
	return pw, nil
}

// Watch adds root to the watch set. Re-watching an already-watched root is
// a no-op.
func (pw *PackageRootWatcher) Watch(root string) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if _, ok := pw.watched[root]; ok {
		return nil
	}
	if err := pw.watcher.Add(root); err != nil {
		return err
	}
	pw.watched[root] = struct{}{}
	return nil
}

func (pw *PackageRootWatcher) run() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn("finder: package root watcher error", "error", err)
		}
	}
}

func (pw *PackageRootWatcher) handleEvent(event fsnotify.Event) {
	root := pw.rootFor(filepath.Dir(event.Name))
	if root == "" || pw.OnChange == nil {
		return
	}
	pw.OnChange(root)
}

// rootFor returns the watched root that dir is equal to or nested under,
// or "" if dir matches none.
func (pw *PackageRootWatcher) rootFor(dir string) string {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	for root := range pw.watched {
		if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}

// Close stops the underlying fsnotify watcher.
func (pw *PackageRootWatcher) Close() error {
	return pw.watcher.Close()
}
