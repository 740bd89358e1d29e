package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// reachableSet collects every commit hash reachable from the given commit.
func (r *Repository) reachableSet(from plumbing.Hash) (map[plumbing.Hash]bool, error) {
	commit, err := r.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", from, err)
	}

	seen := make(map[plumbing.Hash]bool)
	iter := object.NewCommitPreorderIter(commit, nil, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history of %s: %w", from, err)
	}

	return seen, nil
}

// Contains reports whether target is reachable from the history starting at from.
func (r *Repository) Contains(from, target plumbing.Hash) (bool, error) {
	if from == target {
		return true, nil
	}

	seen, err := r.reachableSet(from)
	if err != nil {
		return false, err
	}
	return seen[target], nil
}

// CherryCount returns the number of commits reachable from head that are not
// reachable from upstream, the containment check behind `git cherry`.
func (r *Repository) CherryCount(upstream, head plumbing.Hash) (int, error) {
	seen, err := r.reachableSet(upstream)
	if err != nil {
		return 0, err
	}

	headCommit, err := r.CommitObject(head)
	if err != nil {
		return 0, fmt.Errorf("failed to load commit %s: %w", head, err)
	}

	count := 0
	iter := object.NewCommitPreorderIter(headCommit, seen, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		if !seen[c.Hash] {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk history of %s: %w", head, err)
	}

	return count, nil
}
