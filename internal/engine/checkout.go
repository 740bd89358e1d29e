package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/output"
	"submod.dev/submod/internal/submodule"
)

// CheckoutOptions controls how a submodule is driven to its target commit.
type CheckoutOptions struct {
	// Init clones missing modules into place. Without it a missing module is
	// skipped silently.
	Init bool
	// ToLatestRevision targets the tip of the tracking branch instead of the
	// pinned commit when the module is on one.
	ToLatestRevision bool
}

// Checkout drives one submodule's module to its target commit and branch.
type Checkout struct {
	splog *output.Splog
}

// NewCheckout creates a Checkout engine.
func NewCheckout(splog *output.Splog) *Checkout {
	return &Checkout{splog: splog}
}

// Update brings rec's module up to date. Clone and fetch failures are fatal;
// a missing tracking branch only degrades to a warning.
func (c *Checkout) Update(ctx context.Context, rec *submodule.Record, opts CheckoutOptions) error {
	mod, err := rec.Module()
	if err != nil {
		if !opts.Init {
			return nil
		}
		mod, err = c.initModule(ctx, rec)
		if err != nil {
			return err
		}
	} else {
		// read-only refresh of every configured remote before computing the target
		if err := mod.FetchAll(ctx); err != nil {
			return err
		}
	}

	detached, err := mod.IsDetached()
	if err != nil {
		return err
	}

	target := rec.PinnedCommit()
	if opts.ToLatestRevision {
		path, _ := rec.Path()
		if detached {
			c.splog.Warn("cannot update %s to the latest revision: HEAD is detached", path)
		} else if ref, err := mod.TrackingRef(); err == nil {
			target = ref.Hash()
		} else {
			c.splog.Warn("cannot update %s to the latest revision: no tracking branch is configured", path)
		}
	}

	head, err := mod.HeadHash()
	if err != nil {
		return err
	}
	if head == target {
		return nil
	}

	switch {
	case detached:
		return mod.CheckoutDetached(target)
	case head == plumbing.ZeroHash:
		// freshly bootstrapped branch with no content yet: point it at the
		// target and populate the working tree
		branch, err := mod.CurrentBranch()
		if err != nil {
			return err
		}
		if err := mod.WriteBranchRef(branch, target); err != nil {
			return err
		}
		return mod.CheckoutBranch(branch)
	default:
		return mod.ResetHard(target)
	}
}

// initModule clones the module into place without checking out, then tries
// to establish the configured tracking branch. A remote that does not carry
// the branch leaves the module detached with a warning.
func (c *Checkout) initModule(ctx context.Context, rec *submodule.Record) (*git.Repository, error) {
	abs, err := rec.AbsPath()
	if err != nil {
		return nil, err
	}

	// delete a pre-existing empty directory; a non-empty one is fatal
	if info, err := os.Lstat(abs); err == nil && info.IsDir() {
		if err := os.Remove(abs); err != nil {
			return nil, fmt.Errorf("module directory %s already exists and is not empty: %w", abs, submoderrors.ErrIOFailure)
		}
	}

	url, err := rec.URL()
	if err != nil {
		return nil, err
	}

	mod, err := git.CloneNoCheckout(ctx, url, abs)
	if err != nil {
		return nil, err
	}

	branch, err := rec.BranchName()
	if err != nil {
		return nil, err
	}

	remoteName, _, err := mod.FindRemoteBranch(branch)
	if err != nil {
		c.splog.Warn("failed to check out tracking branch %s", branch)
		return mod, nil
	}

	if err := mod.SetUpstream(branch, remoteName, branch); err != nil {
		return nil, err
	}
	// zero the branch ref even when the clone created it at the remote tip:
	// the working tree is still empty, and the checkout step keys off the
	// null hash to move the branch to the target commit and populate it
	if err := mod.WriteBranchRef(branch, plumbing.ZeroHash); err != nil {
		return nil, err
	}

	if err := mod.SetHeadToBranch(branch); err != nil {
		return nil, err
	}
	return mod, nil
}
