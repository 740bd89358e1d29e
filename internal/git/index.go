package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"

	submoderrors "submod.dev/submod/internal/errors"
)

// IndexEntryHash returns the staged hash for path.
func (r *Repository) IndexEntryHash(path string) (plumbing.Hash, error) {
	idx, err := r.Storer.Index()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to read index: %w", err)
	}

	entry, err := idx.Entry(path)
	if err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("no index entry for %s: %w", path, submoderrors.ErrNotFound)
		}
		return plumbing.ZeroHash, fmt.Errorf("failed to look up index entry %s: %w", path, err)
	}

	return entry.Hash, nil
}

// HasIndexEntry reports whether an index entry exists at path.
func (r *Repository) HasIndexEntry(path string) bool {
	_, err := r.IndexEntryHash(path)
	return err == nil
}

// MoveIndexEntry rekeys an index entry from oldPath to newPath, keeping its
// mode and hash.
func (r *Repository) MoveIndexEntry(oldPath, newPath string) error {
	idx, err := r.Storer.Index()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	found := false
	for _, entry := range idx.Entries {
		if entry.Name == oldPath {
			entry.Name = newPath
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no index entry for %s: %w", oldPath, submoderrors.ErrNotFound)
	}

	if err := r.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// RemoveIndexEntry drops the index entry at path. A missing entry is not an
// error.
func (r *Repository) RemoveIndexEntry(path string) error {
	idx, err := r.Storer.Index()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	entries := idx.Entries[:0]
	for _, entry := range idx.Entries {
		if entry.Name != path {
			entries = append(entries, entry)
		}
	}
	idx.Entries = entries

	if err := r.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// SetModuleIndexEntry stages a gitlink entry for a nested repository at path,
// pinning the given commit. An existing entry at the path is replaced.
func (r *Repository) SetModuleIndexEntry(path string, hash plumbing.Hash) error {
	idx, err := r.Storer.Index()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	for _, entry := range idx.Entries {
		if entry.Name == path {
			entry.Hash = hash
			entry.Mode = filemode.Submodule
			if err := r.Storer.SetIndex(idx); err != nil {
				return fmt.Errorf("failed to write index: %w", err)
			}
			return nil
		}
	}

	idx.Entries = append(idx.Entries, &index.Entry{
		Name: path,
		Hash: hash,
		Mode: filemode.Submodule,
	})

	if err := r.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
