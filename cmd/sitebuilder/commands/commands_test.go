package commands

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func testGlobal() (*Global, *bytes.Buffer) {
	var out bytes.Buffer
	return &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Stdout: &out}, &out
}

func initSite(t *testing.T) (*CLI, *Global, *bytes.Buffer) {
	t.Helper()
	g, out := testGlobal()
	root := &CLI{Config: filepath.Join(t.TempDir(), config.DefaultFile)}
	require.NoError(t, (&InitCmd{}).Run(g, root))
	return root, g, out
}

func TestInitBuildClean(t *testing.T) {
	root, g, out := initSite(t)
	dir := filepath.Dir(root.Config)
	assert.Contains(t, out.String(), "created layouts/default.html")
	assert.FileExists(t, filepath.Join(dir, "content", "index.md"))

	require.NoError(t, (&BuildCmd{}).Run(g, root))
	assert.Contains(t, out.String(), "full build")
	assert.FileExists(t, filepath.Join(dir, "public", "index.html"))
	assert.FileExists(t, filepath.Join(dir, "public", "posts", "hello-world", "index.html"))
	assert.FileExists(t, filepath.Join(dir, ".sitebuilder", stateDBName))

	out.Reset()
	require.NoError(t, (&BuildCmd{Incremental: true}).Run(g, root))
	assert.Contains(t, out.String(), "incremental build")
	assert.Contains(t, out.String(), "0 written")

	require.NoError(t, (&CleanCmd{}).Run(g, root))
	assert.NoDirExists(t, filepath.Join(dir, "public"))
}

func TestInitKeepsExistingFiles(t *testing.T) {
	root, g, out := initSite(t)
	dir := filepath.Dir(root.Config)
	custom := filepath.Join(dir, "layouts", "default.html")
	require.NoError(t, os.WriteFile(custom, []byte("<body>{{ .Content }}</body>"), 0o600))

	err := (&InitCmd{}).Run(g, root)
	require.Error(t, err)
	assert.Equal(t, 7, ferrors.NewCLIErrorAdapter(false, g.Logger).ExitCodeFor(err))

	out.Reset()
	require.NoError(t, (&InitCmd{Force: true}).Run(g, root))
	assert.NotContains(t, out.String(), "created")
	data, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, "<body>{{ .Content }}</body>", string(data))
}

func TestInitStarterPostHeader(t *testing.T) {
	root, _, _ := initSite(t)
	data, err := os.ReadFile(filepath.Join(filepath.Dir(root.Config), "content", "posts", "hello-world.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\ndate: 2025-01-01\ntags:\n  - intro\ntitle: "), string(data))
	assert.True(t, strings.HasSuffix(string(data), "---\nThe first post.\n"), string(data))
}

func TestBuildWithEntityFailureExitsOne(t *testing.T) {
	root, g, out := initSite(t)
	dir := filepath.Dir(root.Config)
	broken := filepath.Join(dir, "content", "broken.md")
	require.NoError(t, os.WriteFile(broken, []byte("---\ntitle: [unclosed\n---\nbody\n"), 0o600))

	err := (&BuildCmd{}).Run(g, root)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "want ExitError, got %v", err)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out.String(), "failed: content/broken.md")
	assert.FileExists(t, filepath.Join(dir, "public", "index.html"))
}

func TestBuildOutputOverride(t *testing.T) {
	root, g, _ := initSite(t)
	target := filepath.Join(t.TempDir(), "www")

	require.NoError(t, (&BuildCmd{Output: target, Drafts: true}).Run(g, root))
	assert.FileExists(t, filepath.Join(target, "index.html"))
}

func TestMissingConfigIsConfigError(t *testing.T) {
	g, _ := testGlobal()
	root := &CLI{Config: filepath.Join(t.TempDir(), "absent.yaml")}
	err := (&BuildCmd{}).Run(g, root)
	require.Error(t, err)
	assert.Equal(t, 7, ferrors.NewCLIErrorAdapter(false, g.Logger).ExitCodeFor(err))
}

func TestLevelFor(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	assert.Equal(t, slog.LevelDebug, levelFor(true, config.LogLevelError))
	assert.Equal(t, slog.LevelError, levelFor(false, config.LogLevelError))
	assert.Equal(t, slog.LevelInfo, levelFor(false, ""))

	t.Setenv(LogLevelEnv, "warn")
	assert.Equal(t, slog.LevelWarn, levelFor(false, config.LogLevelError))
}
