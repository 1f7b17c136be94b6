package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// RevisionInfo describes the checkout a site is built from.
type RevisionInfo struct {
	Commit string // full hash, "" outside a repository
	Short  string
	Branch string
	Dirty  bool
}

// String is the short hash with a "+dirty" suffix for uncommitted changes.
func (r RevisionInfo) String() string {
	if r.Short == "" {
		return ""
	}
	if r.Dirty {
		return r.Short + "+dirty"
	}
	return r.Short
}

// Revision inspects the repository containing dir. A dir outside any
// repository, or a repository without commits, yields an empty RevisionInfo
// and no error.
func Revision(dir string) (RevisionInfo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return RevisionInfo{}, nil
	}
	if err != nil {
		return RevisionInfo{}, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		// Unborn branch: no commits yet.
		return RevisionInfo{}, nil //nolint:nilerr // an empty repository has no revision.
	}
	info := RevisionInfo{Commit: head.Hash().String()}
	info.Short = info.Commit[:min(len(info.Commit), 12)]
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no worktree to be dirty.
		return info, nil //nolint:nilerr // bare repositories are never dirty.
	}
	status, err := wt.Status()
	if err != nil {
		return info, fmt.Errorf("worktree status: %w", err)
	}
	info.Dirty = !status.IsClean()
	return info, nil
}
