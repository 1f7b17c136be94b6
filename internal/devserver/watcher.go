package devserver

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Watcher turns filesystem events under the site inputs into site-relative
// changed paths.
type Watcher struct {
	root     string
	dirs     []string
	classify func(rel string) content.Input
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher watches each of dirs (site-root relative) recursively. Paths
// that classify maps to content.InputNone are dropped, as are editor and OS
// noise files.
func NewWatcher(root string, dirs []string, classify func(rel string) content.Input, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{root: root, classify: classify, logger: logger, fsw: fsw}
	seen := map[string]bool{}
	for _, d := range dirs {
		abs := filepath.Join(root, filepath.FromSlash(d))
		if seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		w.dirs = append(w.dirs, abs)
		if err := w.addRecursive(abs); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fsw.Close() }

// Run forwards relevant changes to emit until ctx is done.
func (w *Watcher) Run(ctx context.Context, emit func(rel string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if rel, ok := w.handle(ev); ok {
				emit(rel)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// handle maps one event to a site-relative path, adding watches for newly
// created directories.
func (w *Watcher) handle(ev fsnotify.Event) (string, bool) {
	if content.Ignored(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
		return "", false
	}
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
			}
		}
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.classify(rel) == content.InputNone {
		return "", false
	}
	w.logger.Debug("Change detected", logfields.Path(rel), slog.String("op", ev.Op.String()))
	return rel, true
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable subtrees are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && content.Ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}
