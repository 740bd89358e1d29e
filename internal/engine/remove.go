package engine

import (
	"context"
	"fmt"
	"os"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/gitmodules"
	"submod.dev/submod/internal/output"
	"submod.dev/submod/internal/submodule"
)

// RemoveOptions selects what a removal touches and how careful it is.
type RemoveOptions struct {
	// Module deletes the checkout from disk.
	Module bool
	// Configuration deletes the .gitmodules section, the .git/config section
	// and the index entry. Independent of Module.
	Configuration bool
	// Force bypasses the dirty-worktree and unpushed-commit guards.
	Force bool
	// ForceChildren applies Force to nested submodules removed bottom-up.
	// Deliberately independent of Force.
	ForceChildren bool
	// DryRun performs every precondition check without mutating anything.
	DryRun bool
}

// Remover deletes a submodule's checkout and/or configuration, guarding
// against data loss unless forced.
type Remover struct {
	repo  *git.Repository
	splog *output.Splog
}

// NewRemover creates a Remover for the given parent repository.
func NewRemover(repo *git.Repository, splog *output.Splog) *Remover {
	return &Remover{repo: repo, splog: splog}
}

// Remove deletes rec according to opts.
func (rm *Remover) Remove(ctx context.Context, rec *submodule.Record, opts RemoveOptions) error {
	if !opts.Module && !opts.Configuration {
		return fmt.Errorf("removal must touch the module, the configuration, or both: %w", submoderrors.ErrInvalidState)
	}
	if rm.repo.IsBare() {
		return submoderrors.NewBareRepositoryError("remove")
	}

	if opts.Module && rec.ModuleExists() {
		if opts.Force {
			if err := rm.forceDelete(rec, opts.DryRun); err != nil {
				return err
			}
		} else {
			if err := rm.safeDelete(ctx, rec, opts); err != nil {
				return err
			}
		}
	}

	if opts.Configuration && !opts.DryRun {
		if err := rm.removeConfiguration(rec); err != nil {
			return err
		}
	}

	return nil
}

// forceDelete removes the checkout unconditionally: a symlink is unlinked, a
// directory tree is deleted recursively.
func (rm *Remover) forceDelete(rec *submodule.Record, dryRun bool) error {
	abs, err := rec.AbsPath()
	if err != nil {
		return err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %v: %w", abs, err, submoderrors.ErrIOFailure)
	}

	if dryRun {
		return nil
	}

	if info.Mode()&os.ModeSymlink != 0 {
		err = os.Remove(abs)
	} else {
		err = os.RemoveAll(abs)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %v: %w", abs, err, submoderrors.ErrIOFailure)
	}
	return nil
}

// safeDelete removes the checkout only when nothing would be lost: the
// working tree must be clean including untracked files, and every remote
// must carry at least one branch containing all local commits. Nested
// submodules are removed first, bottom-up.
func (rm *Remover) safeDelete(ctx context.Context, rec *submodule.Record, opts RemoveOptions) error {
	mod, err := rec.Module()
	if err != nil {
		return err
	}

	dirty, err := mod.IsDirty()
	if err != nil {
		return err
	}
	if dirty {
		return submoderrors.NewDirtyWorktreeError(mod.Root())
	}

	if err := rm.assertPushed(mod); err != nil {
		return err
	}

	children, err := rec.Children()
	if err != nil {
		return err
	}
	childRemover := NewRemover(mod, rm.splog)
	for _, name := range children.Names() {
		err := childRemover.Remove(ctx, children.Get(name), RemoveOptions{
			Module:        true,
			Force:         opts.ForceChildren,
			ForceChildren: opts.ForceChildren,
			DryRun:        opts.DryRun,
		})
		if err != nil {
			return err
		}
	}

	if opts.DryRun {
		return nil
	}

	if err := os.RemoveAll(mod.Root()); err != nil {
		return fmt.Errorf("failed to delete %s: %v: %w", mod.Root(), err, submoderrors.ErrIOFailure)
	}
	return nil
}

// assertPushed verifies that for every configured remote at least one branch
// already contains every commit reachable from the module's HEAD. The check
// is strictly read-only: no fetch is performed first.
func (rm *Remover) assertPushed(mod *git.Repository) error {
	head, err := mod.HeadHash()
	if err != nil {
		return err
	}

	remotes, err := mod.RemoteInfos()
	if err != nil {
		return err
	}

	for _, remote := range remotes {
		branches, err := mod.RemoteBranches(remote.Name)
		if err != nil {
			return err
		}

		covered := false
		for _, branch := range branches {
			ref, err := mod.RemoteBranchRef(remote.Name, branch)
			if err != nil {
				continue
			}
			ahead, err := mod.CherryCount(ref.Hash(), head)
			if err != nil {
				continue
			}
			if ahead == 0 {
				covered = true
				break
			}
		}
		if !covered {
			return submoderrors.NewUnpushedCommitsError(mod.Root(), remote.Name)
		}
	}

	return nil
}

// removeConfiguration drops the record's index entry, its .git/config
// section and its .gitmodules section.
func (rm *Remover) removeConfiguration(rec *submodule.Record) error {
	path, err := rec.Path()
	if err != nil {
		return err
	}

	if err := rm.repo.RemoveIndexEntry(path); err != nil {
		return err
	}

	if err := rm.repo.RemoveSubmoduleConfig(rec.Name()); err != nil {
		return err
	}

	writer, err := gitmodules.LoadWorktree(rm.repo, false, rec.Invalidate)
	if err != nil {
		return err
	}
	if err := writer.RemoveSection(rec.Name()); err != nil {
		return err
	}
	return writer.Flush()
}
