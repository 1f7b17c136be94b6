package deps

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *State {
	s := NewState()
	s.ConfigHash = "cfg"
	s.LayoutSet = "layouts"
	s.DataSet = "data"
	s.Revision = "abc123"
	s.Inputs["content/posts/a.md"] = "h1"
	s.Inputs["layouts/post.html"] = "h2"
	s.Artifacts["content/posts/a.md"] = &Record{
		Key:        "content/posts/a.md",
		OutputPath: "posts/a/index.html",
		Hash:       "out",
		Inputs:     []string{"content/posts/a.md", "layouts/post.html"},
		Views:      map[string]string{"neighbors": "fp"},
		Params:     []string{"author", "title"},
	}
	s.Static["css/site.css"] = StaticRecord{Target: "css/site.css", Source: "static/css/site.css", Hash: "h3"}
	return s
}

func TestStores_RoundTrip(t *testing.T) {
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	for name, store := range map[string]Store{"memory": NewMemoryStore(), "sqlite": sqlite} {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, store.Save(ctx, sampleState()))
			got, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, sampleState(), got)
		})
	}
}

func TestSQLiteStore_SaveReplacesPreviousState(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	require.NoError(t, store.Save(ctx, sampleState()))

	next := NewState()
	next.ConfigHash = "cfg2"
	next.Inputs["content/b.md"] = "h"
	require.NoError(t, store.Save(ctx, next))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cfg2", got.ConfigHash)
	assert.Empty(t, got.Artifacts)
	assert.Equal(t, map[string]string{"content/b.md": "h"}, got.Inputs)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(t.Context(), sampleState()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)
}

func TestMemoryStore_IsolatesSavedState(t *testing.T) {
	store := NewMemoryStore()
	s := sampleState()
	require.NoError(t, store.Save(t.Context(), s))
	s.Inputs["mutated"] = "x"

	got, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.NotContains(t, got.Inputs, "mutated")
}
