package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/gitmodules"
	"submod.dev/submod/internal/submodule"
)

// MoveOptions selects what a move touches.
type MoveOptions struct {
	// Module relocates the checkout directory on disk.
	Module bool
	// Configuration updates the .gitmodules path and rekeys the index entry.
	Configuration bool
}

// Mover relocates a submodule's checkout and keeps the declarative record in
// step. The physical move is compensated (moved back) when the record update
// fails afterwards; the reverse order has no compensation.
type Mover struct {
	repo *git.Repository
}

// NewMover creates a Mover for the given parent repository.
func NewMover(repo *git.Repository) *Mover {
	return &Mover{repo: repo}
}

// Move relocates rec to newPath, given working-tree relative.
func (m *Mover) Move(rec *submodule.Record, newPath string, opts MoveOptions) error {
	if !opts.Module && !opts.Configuration {
		return fmt.Errorf("move must touch the module, the configuration, or both: %w", submoderrors.ErrInvalidState)
	}
	if m.repo.IsBare() {
		return submoderrors.NewBareRepositoryError("move")
	}

	newPath = strings.TrimSuffix(filepath.ToSlash(newPath), "/")

	curPath, err := rec.Path()
	if err != nil {
		return err
	}
	if newPath == curPath {
		return nil
	}

	destAbs := filepath.Join(m.repo.Root(), filepath.FromSlash(newPath))
	if info, err := os.Stat(destAbs); err == nil && !info.IsDir() {
		return submoderrors.NewOccupiedPathError(newPath, "destination is a file")
	}

	if opts.Configuration && m.repo.HasIndexEntry(newPath) {
		return submoderrors.NewOccupiedPathError(newPath, "an index entry already exists at the destination")
	}

	if opts.Module {
		if err := clearDestination(destAbs, newPath); err != nil {
			return err
		}
	}

	curAbs, err := rec.AbsPath()
	if err != nil {
		return err
	}

	moved := false
	if opts.Module {
		if _, err := os.Lstat(curAbs); err == nil {
			if err := os.MkdirAll(filepath.Dir(destAbs), 0755); err != nil {
				return fmt.Errorf("failed to create %s: %v: %w", filepath.Dir(destAbs), err, submoderrors.ErrIOFailure)
			}
			if err := os.Rename(curAbs, destAbs); err != nil {
				return fmt.Errorf("failed to move %s to %s: %v: %w", curAbs, destAbs, err, submoderrors.ErrIOFailure)
			}
			moved = true
			// the gitfile's gitdir pointer and the git directory's
			// core.worktree are relative; rewire them for the new home
			if err := git.RelocateModule(curAbs, destAbs); err != nil {
				_ = os.Rename(destAbs, curAbs)
				return err
			}
		}
	}

	if opts.Configuration {
		if err := m.updateRecord(rec, curPath, newPath); err != nil {
			// compensate the physical move before propagating
			if moved {
				_ = os.Rename(destAbs, curAbs)
				_ = git.RelocateModule(destAbs, curAbs)
			}
			return err
		}
	}

	return nil
}

// updateRecord rekeys the index entry and rewrites the configured path.
func (m *Mover) updateRecord(rec *submodule.Record, curPath, newPath string) error {
	if err := m.repo.MoveIndexEntry(curPath, newPath); err != nil {
		return err
	}

	writer, err := gitmodules.LoadWorktree(m.repo, false, rec.Invalidate)
	if err != nil {
		return err
	}
	if err := writer.SetValue(rec.Name(), submodule.KeyPath, newPath); err != nil {
		return err
	}
	return writer.Flush()
}

// clearDestination removes an empty directory or dangling link occupying the
// destination; a non-empty directory is refused.
func clearDestination(destAbs, newPath string) error {
	info, err := os.Lstat(destAbs)
	if err != nil {
		return nil // nothing in the way
	}

	if info.IsDir() {
		entries, err := os.ReadDir(destAbs)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v: %w", destAbs, err, submoderrors.ErrIOFailure)
		}
		if len(entries) > 0 {
			return submoderrors.NewOccupiedPathError(newPath, "destination directory is not empty")
		}
	}

	if err := os.Remove(destAbs); err != nil {
		return fmt.Errorf("failed to remove %s: %v: %w", destAbs, err, submoderrors.ErrIOFailure)
	}
	return nil
}
