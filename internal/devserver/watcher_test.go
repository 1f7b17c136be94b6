package devserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

func markdownOnly(rel string) content.Input {
	if strings.HasPrefix(rel, "content/") && strings.HasSuffix(rel, ".md") {
		return content.InputContent
	}
	return content.InputNone
}

func waitPath(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("no change reported for %s", want)
		}
	}
}

func TestWatcher_ReportsRelevantChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "content"), 0o750))

	w, err := NewWatcher(root, []string{"content", "data"}, markdownOnly, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	changes := make(chan string, 64)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go w.Run(ctx, func(rel string) { changes <- rel })

	require.NoError(t, os.WriteFile(filepath.Join(root, "content", "a.md"), []byte("a"), 0o600))
	waitPath(t, changes, "content/a.md")

	require.NoError(t, os.Mkdir(filepath.Join(root, "content", "sub"), 0o750))
	// Let the watcher register the new directory before writing into it.
	require.Eventually(t, func() bool {
		return contains(w.fsw.WatchList(), filepath.Join(root, "content", "sub"))
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "content", "sub", "b.md"), []byte("b"), 0o600))
	waitPath(t, changes, "content/sub/b.md")
}

func TestWatcher_HandleFiltersNoise(t *testing.T) {
	root := t.TempDir()
	w := &Watcher{root: root, classify: markdownOnly, logger: discardLogger()}

	cases := []struct {
		name string
		ev   fsnotify.Event
		want string
		ok   bool
	}{
		{"markdown write", fsnotify.Event{Name: filepath.Join(root, "content", "a.md"), Op: fsnotify.Write}, "content/a.md", true},
		{"removal", fsnotify.Event{Name: filepath.Join(root, "content", "gone.md"), Op: fsnotify.Remove}, "content/gone.md", true},
		{"swap file", fsnotify.Event{Name: filepath.Join(root, "content", ".a.md.swp"), Op: fsnotify.Create}, "", false},
		{"backup file", fsnotify.Event{Name: filepath.Join(root, "content", "a.md~"), Op: fsnotify.Write}, "", false},
		{"chmod only", fsnotify.Event{Name: filepath.Join(root, "content", "a.md"), Op: fsnotify.Chmod}, "", false},
		{"unclassified", fsnotify.Event{Name: filepath.Join(root, "content", "notes.txt"), Op: fsnotify.Write}, "", false},
		{"outside root", fsnotify.Event{Name: filepath.Join(filepath.Dir(root), "x.md"), Op: fsnotify.Write}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := w.handle(tc.ev)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWatcher_MissingDirsAreSkipped(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, []string{"content", "static"}, markdownOnly, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	assert.Empty(t, w.dirs)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
