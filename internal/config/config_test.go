package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("title: Blog\nbase_url: https://example.com/\ncollections:\n  - name: posts\n"))
	require.NoError(t, err)

	assert.Equal(t, "content", cfg.Source)
	assert.Equal(t, "public", cfg.Output)
	assert.Equal(t, "/:path/", cfg.Permalink)
	assert.Equal(t, "https://example.com", cfg.BaseURL)
	assert.Equal(t, "posts", cfg.Collections[0].Dir)
	assert.Positive(t, cfg.Build.Workers)
	assert.Equal(t, 150*time.Millisecond, cfg.DebounceWindow())
	assert.Equal(t, 5*time.Minute, cfg.BuildTimeout())
	assert.True(t, cfg.LiveReloadEnabled())
	assert.True(t, cfg.LinkCheckEnabled())
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:1313", cfg.Addr())
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"relative permalink", "permalink: posts/:slug/"},
		{"duplicate collection", "collections:\n  - name: posts\n  - name: posts\n"},
		{"reserved collection", "collections:\n  - name: pages\n"},
		{"paginate without list layout", "collections:\n  - name: posts\n    paginate: 5\n"},
		{"source escapes root", "source: ../elsewhere"},
		{"output equals source", "source: site\noutput: site"},
		{"output is site root", "output: ."},
		{"ratio out of range", "build:\n  full_rebuild_ratio: 2\n"},
		{"bad timeout", "build:\n  timeout: soon\n"},
		{"bad debounce", "serve:\n  debounce: fast\n"},
		{"duplicate taxonomy", "taxonomies:\n  - name: tags\n  - name: tags\n"},
		{"unknown log level", "logging:\n  level: chatty\n"},
		{"unknown log format", "logging:\n  format: xml\n"},
		{"negative notify retries", "notify:\n  retries: -1\n"},
		{"unknown backoff", "notify:\n  backoff: random\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, ferrors.IsKind(err, ferrors.InvalidConfigKind))
		})
	}
}

func TestLoad_ExpandsEnvAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SITE_TITLE", "From Env")
	p := writeConfig(t, dir, "title: ${SITE_TITLE}\noutput: dist\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "From Env", cfg.Title)
	assert.Equal(t, dir, cfg.Root())
	assert.Equal(t, filepath.Join(dir, "dist"), cfg.OutputDir())
	assert.Equal(t, filepath.Join(dir, ".sitebuilder"), cfg.StateDir())
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SB_TEST_TITLE=dotenv\nSB_TEST_URL=https://dotenv.example\n"), 0o600))
	t.Setenv("SB_TEST_TITLE", "process")
	t.Cleanup(func() { _ = os.Unsetenv("SB_TEST_URL") })
	p := writeConfig(t, dir, "title: ${SB_TEST_TITLE}\nbase_url: ${SB_TEST_URL}\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.Title)
	assert.Equal(t, "https://dotenv.example", cfg.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryConfig, ferrors.GetCategory(err))
}

func TestHash_IgnoresServeSettings(t *testing.T) {
	a, err := Parse([]byte("title: A\nparams:\n  b: 1\n  a: 2\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("title: A\nparams:\n  a: 2\n  b: 1\nserve:\n  port: 9999\n"))
	require.NoError(t, err)
	c, err := Parse([]byte("title: B\n"))
	require.NoError(t, err)

	assert.NotEmpty(t, a.Hash())
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestInit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "site", DefaultFile)
	require.NoError(t, Init(p, false))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "My Site", cfg.Title)
	require.Len(t, cfg.Collections, 1)
	assert.Equal(t, "posts", cfg.Collections[0].Name)

	err = Init(p, false)
	require.Error(t, err)
	require.NoError(t, Init(p, true))
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel(" WARNING "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("chatty"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
}
