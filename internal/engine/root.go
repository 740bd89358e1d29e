package engine

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing/object"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/output"
	"submod.dev/submod/internal/submodule"
)

// UpdateOptions controls a full-tree update.
type UpdateOptions struct {
	// PreviousCommit overrides the commit the current submodule set is
	// compared against. Defaults to ORIG_HEAD, then the sole parent of HEAD,
	// then HEAD itself (an empty diff).
	PreviousCommit string
	// Recursive descends into each submodule's own submodules, depth-first.
	Recursive bool
	// Init clones missing modules into place.
	Init bool
	// ToLatestRevision checks out tracking-branch tips instead of pinned commits.
	ToLatestRevision bool
	// ForceRemove deletes removed submodules even when dirty or unpushed.
	ForceRemove bool
	// ForceRemoveChildren applies force to nested submodules of removed ones.
	ForceRemoveChildren bool
}

// Coordinator is the entry point for reconciling a repository's entire
// submodule tree against its recorded state.
type Coordinator struct {
	repo       *git.Repository
	splog      *output.Splog
	reconciler *Reconciler
	checkout   *Checkout
}

// NewCoordinator creates a Coordinator for the given repository.
func NewCoordinator(repo *git.Repository, splog *output.Splog) *Coordinator {
	return &Coordinator{
		repo:       repo,
		splog:      splog,
		reconciler: NewReconciler(repo, splog),
		checkout:   NewCheckout(splog),
	}
}

// Update reconciles the submodule set recorded in the repository against the
// on-disk checkouts, then drives every submodule to its target commit. A
// failure aborts the walk from that point; already-processed submodules stay
// applied and a re-run is idempotent over them.
func (co *Coordinator) Update(ctx context.Context, opts UpdateOptions) error {
	if co.repo.IsBare() {
		return submoderrors.NewBareRepositoryError("update")
	}

	cur, err := co.repo.HeadCommit()
	if err != nil {
		return err
	}

	prev, err := co.previousCommit(cur, opts.PreviousCommit)
	if err != nil {
		return err
	}

	prevSnap, err := submodule.Load(co.repo, prev)
	if err != nil {
		return err
	}
	curSnap, err := submodule.Load(co.repo, cur)
	if err != nil {
		return err
	}

	err = co.reconciler.Reconcile(ctx, prevSnap, curSnap, ReconcileOptions{
		ForceRemove:         opts.ForceRemove,
		ForceRemoveChildren: opts.ForceRemoveChildren,
	})
	if err != nil {
		return err
	}

	checkoutOpts := CheckoutOptions{
		Init:             opts.Init,
		ToLatestRevision: opts.ToLatestRevision,
	}

	for _, name := range curSnap.Names() {
		rec := curSnap.Get(name)

		if err := co.checkout.Update(ctx, rec, checkoutOpts); err != nil {
			return err
		}
		co.splog.Debug("submodule %s is up to date", name)

		if !opts.Recursive || !rec.ModuleExists() {
			continue
		}

		mod, err := rec.Module()
		if err != nil {
			return err
		}

		childOpts := opts
		childOpts.PreviousCommit = ""
		if err := NewCoordinator(mod, co.splog).Update(ctx, childOpts); err != nil {
			return err
		}
	}

	return nil
}

// previousCommit resolves the commit the current state is diffed against:
// the explicit override, then ORIG_HEAD, then the sole parent of HEAD, then
// HEAD itself for an initial commit (which yields an empty diff).
func (co *Coordinator) previousCommit(cur *object.Commit, override string) (*object.Commit, error) {
	if override != "" {
		return co.repo.ResolveCommit(override)
	}

	if orig, err := co.repo.OrigHead(); err == nil {
		return orig, nil
	}

	if cur.NumParents() > 0 {
		parent, err := cur.Parent(0)
		if err != nil {
			return nil, err
		}
		return parent, nil
	}

	return cur, nil
}
