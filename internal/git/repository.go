// Package git wraps go-git with the repository operations submod needs:
// opening repositories and nested modules, cloning, remote management,
// branch wiring, reachability checks, worktree resets and index edits.
package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	submoderrors "submod.dev/submod/internal/errors"
)

// Repository wraps a go-git repository together with its working tree root.
// It is constructed once and injected into everything that needs repository
// access; there is no package-level default repository.
type Repository struct {
	*gogit.Repository
	root string // working tree root, empty for bare repositories
}

// Open opens the repository containing path, searching parent directories
// for the .git directory.
func Open(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		// detection walks up looking for a .git entry, which a bare
		// repository does not have; retry on the literal path
		repo, err = gogit.PlainOpen(absPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", absPath, err)
	}

	return wrap(repo)
}

// OpenModule opens the repository rooted exactly at path. Unlike Open it does
// not search parent directories, so a missing module is reported as missing
// instead of resolving to the parent repository.
func OpenModule(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpen(absPath)
	if err != nil {
		return nil, fmt.Errorf("no repository at %s: %w", absPath, err)
	}

	return wrap(repo)
}

func wrap(repo *gogit.Repository) (*Repository, error) {
	r := &Repository{Repository: repo}

	wt, err := repo.Worktree()
	switch {
	case err == nil:
		r.root = wt.Filesystem.Root()
	case errors.Is(err, gogit.ErrIsBareRepository):
		// bare repositories have no root
	default:
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return r, nil
}

// Root returns the working tree root, or the empty string for bare repositories.
func (r *Repository) Root() string {
	return r.root
}

// IsBare reports whether the repository has no working tree.
func (r *Repository) IsBare() bool {
	return r.root == ""
}

// HeadCommit returns the commit HEAD points at.
func (r *Repository) HeadCommit() (*object.Commit, error) {
	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := r.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	return commit, nil
}

// HeadHash returns the hash HEAD resolves to. For a branch bootstrapped with
// a null ref this is the zero hash.
func (r *Repository) HeadHash() (plumbing.Hash, error) {
	head, err := r.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash(), nil
}

// ResolveCommit resolves a revision string (hash, ref name, HEAD~1, ...) to a commit.
func (r *Repository) ResolveCommit(rev string) (*object.Commit, error) {
	hash, err := r.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rev, submoderrors.ErrNotFound)
	}

	commit, err := r.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("%s is not a commit: %w", rev, err)
	}
	return commit, nil
}

// OrigHead returns the commit ORIG_HEAD points at, recorded by git before
// history-changing operations. Returns an error if the marker does not exist.
func (r *Repository) OrigHead() (*object.Commit, error) {
	ref, err := r.Reference(plumbing.ReferenceName("ORIG_HEAD"), true)
	if err != nil {
		return nil, fmt.Errorf("no ORIG_HEAD: %w", err)
	}

	commit, err := r.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("ORIG_HEAD is not a commit: %w", err)
	}
	return commit, nil
}
