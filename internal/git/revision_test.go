package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, dir, name, body string) *git.Repository {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	if err != nil {
		repo, err = git.PlainInit(dir, false)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(name)
	require.NoError(t, err)
	_, err = w.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)
	return repo
}

func TestRevision_OutsideRepository(t *testing.T) {
	info, err := Revision(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, info.String())
}

func TestRevision_CleanAndDirty(t *testing.T) {
	dir := t.TempDir()
	repo := commitFile(t, dir, "index.md", "# Home\n")
	head, err := repo.Head()
	require.NoError(t, err)

	sub := filepath.Join(dir, "content")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	info, err := Revision(sub)
	require.NoError(t, err)
	assert.Equal(t, head.Hash().String(), info.Commit)
	assert.Len(t, info.Short, 12)
	assert.False(t, info.Dirty)
	assert.Equal(t, info.Short, info.String())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Changed\n"), 0o600))
	info, err = Revision(dir)
	require.NoError(t, err)
	assert.True(t, info.Dirty)
	assert.Equal(t, info.Short+"+dirty", info.String())
}
