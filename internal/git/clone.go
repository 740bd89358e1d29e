package git

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	submoderrors "submod.dev/submod/internal/errors"
)

// CloneNoCheckout clones url into path without populating the working tree.
// All remote branches are fetched so the caller can wire up tracking branches
// and check out a specific commit afterwards.
func CloneNoCheckout(ctx context.Context, url, path string) (*Repository, error) {
	return Clone(ctx, url, path, "", true)
}

// Clone clones url into path. When branch is non-empty the clone checks out
// that branch instead of the remote HEAD.
func Clone(ctx context.Context, url, path, branch string, noCheckout bool) (*Repository, error) {
	opts := &gogit.CloneOptions{
		URL:        url,
		NoCheckout: noCheckout,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	repo, err := gogit.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s into %s: %v: %w", url, path, err, submoderrors.ErrIOFailure)
	}

	return wrap(repo)
}
