package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	submoderrors "submod.dev/submod/internal/errors"
)

// BranchExists reports whether a local branch ref exists.
func (r *Repository) BranchExists(name string) bool {
	_, err := r.Reference(plumbing.NewBranchReferenceName(name), false)
	return err == nil
}

// BranchHash returns the hash a local branch points at.
func (r *Repository) BranchHash(name string) (plumbing.Hash, error) {
	ref, err := r.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("branch %s: %w", name, submoderrors.ErrNotFound)
	}
	return ref.Hash(), nil
}

// CreateBranch creates a local branch at the given commit. Creating a branch
// that already exists is an error; use BranchExists to reuse one.
func (r *Repository) CreateBranch(name string, hash plumbing.Hash) error {
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := r.Reference(refName, false); err == nil {
		return fmt.Errorf("branch %s already exists: %w", name, submoderrors.ErrConflict)
	}
	return r.WriteBranchRef(name, hash)
}

// WriteBranchRef writes a local branch ref directly. The zero hash is
// allowed: it brings the branch into existence without any content, which is
// how a fresh no-checkout clone bootstraps its tracking branch.
func (r *Repository) WriteBranchRef(name string, hash plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	if err := r.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to write branch %s: %w", name, err)
	}
	return nil
}

// DeleteBranch removes a local branch ref and its upstream configuration.
func (r *Repository) DeleteBranch(name string) error {
	if err := r.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}

	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if _, ok := cfg.Branches[name]; ok {
		delete(cfg.Branches, name)
		if err := r.SetConfig(cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

// SetUpstream configures branch to track remoteBranch at remote.
func (r *Repository) SetUpstream(branch, remote, remoteBranch string) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg.Branches[branch] = &config.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(remoteBranch),
	}

	if err := r.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetHeadToBranch points HEAD at a local branch without touching the working tree.
func (r *Repository) SetHeadToBranch(name string) error {
	ref := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(name))
	if err := r.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to set HEAD to %s: %w", name, err)
	}
	return nil
}

// IsDetached reports whether HEAD points at a commit rather than a branch.
func (r *Repository) IsDetached() (bool, error) {
	head, err := r.Reference(plumbing.HEAD, false)
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		return false, nil
	}
	return true, nil
}

// CurrentBranch returns the short name of the branch HEAD is on.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch: %w", submoderrors.ErrInvalidState)
	}
	return head.Target().Short(), nil
}

// TrackingRef returns the remote-tracking ref the current branch is
// configured to follow.
func (r *Repository) TrackingRef() (*plumbing.Reference, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return nil, err
	}
	return r.TrackingRefOf(branch)
}

// TrackingRefOf returns the remote-tracking ref configured as upstream of a
// local branch.
func (r *Repository) TrackingRefOf(branch string) (*plumbing.Reference, error) {
	cfg, err := r.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	bc, ok := cfg.Branches[branch]
	if !ok || bc.Remote == "" {
		return nil, fmt.Errorf("branch %s has no upstream: %w", branch, submoderrors.ErrNotFound)
	}

	return r.RemoteBranchRef(bc.Remote, bc.Merge.Short())
}
