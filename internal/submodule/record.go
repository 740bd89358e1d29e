// Package submodule provides the submodule data model: records identified by
// name and snapshots of the full submodule set at a point in time.
package submodule

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/gitmodules"
)

// Option keys in .gitmodules sections.
const (
	KeyPath   = "path"
	KeyURL    = "url"
	KeyBranch = "branch"
)

// DefaultBranch is assumed when a submodule section has no branch option.
const DefaultBranch = "master"

// attrs holds the memoized configuration values of a record.
type attrs struct {
	path   string
	url    string
	branch string
}

// Record describes one submodule as configured in a parent repository.
// Identity is the name alone: two records with the same name describe the
// same submodule even when path, url or branch differ. The configuration
// values are resolved lazily from the parent commit's context and cached
// until Invalidate is called.
type Record struct {
	repo         *git.Repository
	name         string
	pinned       plumbing.Hash
	parentCommit *object.Commit
	resolved     *attrs
}

// NewRecord creates a record for the given parent repository and context
// commit. The configuration values are resolved on first access.
func NewRecord(repo *git.Repository, name string, parentCommit *object.Commit, pinned plumbing.Hash) *Record {
	return &Record{
		repo:         repo,
		name:         name,
		parentCommit: parentCommit,
		pinned:       pinned,
	}
}

// newResolvedRecord creates a record with its configuration values already
// filled in, saving a re-parse when the caller just read them.
func newResolvedRecord(repo *git.Repository, name string, parentCommit *object.Commit, pinned plumbing.Hash, path, url, branch string) *Record {
	rec := NewRecord(repo, name, parentCommit, pinned)
	rec.resolved = &attrs{path: path, url: url, branch: branch}
	return rec
}

// Name returns the stable logical identifier of the submodule.
func (r *Record) Name() string {
	return r.name
}

// Repo returns the parent repository the record belongs to.
func (r *Record) Repo() *git.Repository {
	return r.repo
}

// ParentCommit returns the commit whose configuration defines this record.
func (r *Record) ParentCommit() *object.Commit {
	return r.parentCommit
}

// PinnedCommit returns the commit the parent repository wants checked out.
func (r *Record) PinnedCommit() plumbing.Hash {
	return r.pinned
}

// SetPinnedCommit retargets the record to a different commit. Used when the
// pinned commit became unreachable after a remote migration.
func (r *Record) SetPinnedCommit(hash plumbing.Hash) {
	r.pinned = hash
}

// load resolves path, url and branch from the parent commit's configuration
// and caches them.
func (r *Record) load() (*attrs, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}

	cfg, err := gitmodules.LoadCommit(r.repo, r.parentCommit)
	if err != nil {
		return nil, err
	}

	path, err := cfg.Value(r.name, KeyPath)
	if err != nil {
		return nil, err
	}
	url, err := cfg.Value(r.name, KeyURL)
	if err != nil {
		return nil, err
	}

	r.resolved = &attrs{
		path:   path,
		url:    url,
		branch: cfg.ValueDefault(r.name, KeyBranch, DefaultBranch),
	}
	return r.resolved, nil
}

// Invalidate drops the memoized configuration values, forcing the next
// access to re-read the configuration. It is registered as the on-write
// notification of every config writer that touches this record's section.
func (r *Record) Invalidate() {
	r.resolved = nil
}

// Path returns the working-tree-relative path of the submodule.
func (r *Record) Path() (string, error) {
	a, err := r.load()
	if err != nil {
		return "", err
	}
	return a.path, nil
}

// URL returns the remote source location of the submodule.
func (r *Record) URL() (string, error) {
	a, err := r.load()
	if err != nil {
		return "", err
	}
	return a.url, nil
}

// BranchName returns the branch the submodule tracks.
func (r *Record) BranchName() (string, error) {
	a, err := r.load()
	if err != nil {
		return "", err
	}
	return a.branch, nil
}

// AbsPath returns the absolute filesystem path of the submodule's checkout.
func (r *Record) AbsPath() (string, error) {
	path, err := r.Path()
	if err != nil {
		return "", err
	}
	return filepath.Join(r.repo.Root(), filepath.FromSlash(path)), nil
}

// SetParentCommit rebinds the record to a different context commit. When
// check is true, the commit must actually configure this submodule and the
// pinned commit is refreshed from its tree; the memoized values are dropped.
// When check is false only the context changes and cached values survive,
// which is what removal of a no-longer-configured submodule relies on.
func (r *Record) SetParentCommit(commit *object.Commit, check bool) error {
	if !check {
		r.parentCommit = commit
		return nil
	}

	cfg, err := gitmodules.LoadCommit(r.repo, commit)
	if err != nil {
		return err
	}
	if !cfg.Has(r.name) {
		return submoderrors.NewSubmoduleNotFoundError(r.name, commit.Hash.String())
	}

	prev := r.parentCommit
	r.parentCommit = commit

	path := cfg.ValueDefault(r.name, KeyPath, "")
	pinned, err := pinnedAt(r.repo, commit, path)
	if err != nil {
		r.parentCommit = prev
		return err
	}

	r.pinned = pinned
	r.Invalidate()
	return nil
}

// Module opens the nested repository at the submodule's path.
func (r *Record) Module() (*git.Repository, error) {
	abs, err := r.AbsPath()
	if err != nil {
		return nil, err
	}

	mod, err := git.OpenModule(abs)
	if err != nil {
		return nil, fmt.Errorf("module %s is not checked out: %w", r.name, err)
	}
	return mod, nil
}

// ModuleExists reports whether the submodule's checkout is a valid repository.
func (r *Record) ModuleExists() bool {
	_, err := r.Module()
	return err == nil
}

// Exists reports whether the submodule is present in the configuration of
// its parent commit.
func (r *Record) Exists() bool {
	cfg, err := gitmodules.LoadCommit(r.repo, r.parentCommit)
	if err != nil {
		return false
	}
	return cfg.Has(r.name)
}

// Children returns the snapshot of submodules nested inside this one. A
// missing or empty module yields an empty snapshot.
func (r *Record) Children() (*Snapshot, error) {
	mod, err := r.Module()
	if err != nil {
		return emptySnapshot(nil, nil), nil
	}

	head, err := mod.HeadCommit()
	if err != nil {
		return emptySnapshot(mod, nil), nil
	}

	return Load(mod, head)
}

// pinnedAt looks up the commit recorded for a submodule path at a commit,
// falling back to the index for entries that are staged but not committed.
func pinnedAt(repo *git.Repository, commit *object.Commit, path string) (plumbing.Hash, error) {
	tree, err := commit.Tree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to load tree of %s: %w", commit.Hash, err)
	}

	if entry, err := tree.FindEntry(path); err == nil {
		return entry.Hash, nil
	}

	if hash, err := repo.IndexEntryHash(path); err == nil {
		return hash, nil
	}

	return plumbing.ZeroHash, fmt.Errorf("path %s does not exist at commit %s: %w", path, commit.Hash, submoderrors.ErrNotFound)
}
