package engine

import (
	"context"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/output"
	"submod.dev/submod/internal/submodule"
)

// tempRemoteName is the remote created during a URL migration. It only lives
// for the duration of the swap before taking over the retired remote's name.
const tempRemoteName = "__new_origin__"

// ReconcileOptions controls how removed submodules are deleted.
type ReconcileOptions struct {
	ForceRemove         bool
	ForceRemoveChildren bool
}

// Reconciler diffs two snapshots of the submodule set and applies removals,
// path moves, URL migrations and branch changes to the working tree. All
// rewiring completes before any checkout runs, so the checkout engine always
// operates on an already-reconciled tree.
type Reconciler struct {
	repo    *git.Repository
	splog   *output.Splog
	remover *Remover
	mover   *Mover
}

// NewReconciler creates a Reconciler for the given parent repository.
func NewReconciler(repo *git.Repository, splog *output.Splog) *Reconciler {
	return &Reconciler{
		repo:    repo,
		splog:   splog,
		remover: NewRemover(repo, splog),
		mover:   NewMover(repo),
	}
}

// Reconcile applies the difference between the previous snapshot and the
// current one. The diff is keyed by name only.
func (r *Reconciler) Reconcile(ctx context.Context, prev, cur *submodule.Snapshot, opts ReconcileOptions) error {
	head, err := r.repo.HeadCommit()
	if err != nil {
		return err
	}

	for _, name := range submodule.Removed(prev, cur) {
		rec := prev.Get(name)
		// rebind the context to the current HEAD so the physical path and
		// url keep resolving; the cached values survive the rebind
		if err := rec.SetParentCommit(head, false); err != nil {
			return err
		}
		err := r.remover.Remove(ctx, rec, RemoveOptions{
			Module:        true,
			Configuration: false, // the config already reflects the removal
			Force:         opts.ForceRemove,
			ForceChildren: opts.ForceRemoveChildren,
		})
		if err != nil {
			return err
		}
	}

	for _, name := range submodule.Common(prev, cur) {
		if err := r.reconcilePair(ctx, prev.Get(name), cur.Get(name)); err != nil {
			return err
		}
	}

	return nil
}

// reconcilePair applies path, url and branch changes for one submodule that
// exists in both snapshots.
func (r *Reconciler) reconcilePair(ctx context.Context, prev, cur *submodule.Record) error {
	prevPath, err := prev.Path()
	if err != nil {
		return err
	}
	curPath, err := cur.Path()
	if err != nil {
		return err
	}

	if curPath != prevPath && prev.ModuleExists() {
		// the declarative config already points at the new path; only the
		// filesystem copy must follow
		err := r.mover.Move(prev, curPath, MoveOptions{Module: true, Configuration: false})
		if err != nil {
			return err
		}
	}

	if !cur.ModuleExists() {
		return nil
	}

	prevURL, err := prev.URL()
	if err != nil {
		return err
	}
	curURL, err := cur.URL()
	if err != nil {
		return err
	}
	if curURL != prevURL {
		if err := r.migrateRemote(ctx, prevURL, cur); err != nil {
			return err
		}
	}

	prevBranch, err := prev.BranchName()
	if err != nil {
		return err
	}
	curBranch, err := cur.BranchName()
	if err != nil {
		return err
	}
	if curBranch != prevBranch {
		if err := r.rewireBranch(prevBranch, cur); err != nil {
			return err
		}
	}

	return nil
}

// migrateRemote swaps the module's remote over to cur's url while preserving
// the remote's name. The new url is fetched through a temporary remote
// first, so already-retrieved commits never have to be re-downloaded, and
// tags or extra branches of the old remote are left untouched.
func (r *Reconciler) migrateRemote(ctx context.Context, prevURL string, cur *submodule.Record) error {
	mod, err := cur.Module()
	if err != nil {
		return err
	}

	curURL, err := cur.URL()
	if err != nil {
		return err
	}

	remotes, err := mod.RemoteInfos()
	if err != nil {
		return err
	}

	// nothing to do if a remote already points at the new url
	for _, remote := range remotes {
		if remote.URL == curURL {
			return nil
		}
	}

	branch, err := cur.BranchName()
	if err != nil {
		return err
	}

	if err := mod.AddRemote(tempRemoteName, curURL); err != nil {
		return err
	}
	if err := mod.FetchRemote(ctx, tempRemoteName); err != nil {
		return err
	}

	if _, err := mod.RemoteBranchRef(tempRemoteName, branch); err != nil {
		return submoderrors.NewBranchUnavailableError(branch, curURL)
	}

	// identify the remote to retire: the one at the old url, or the sole
	// remote when no url matches
	retire := ""
	for _, remote := range remotes {
		if remote.URL == prevURL {
			retire = remote.Name
			break
		}
	}
	if retire == "" {
		if len(remotes) != 1 {
			return submoderrors.NewAmbiguousRemoteError(prevURL)
		}
		retire = remotes[0].Name
	}

	if err := mod.RemoveRemote(retire); err != nil {
		return err
	}
	// the new remote inherits the retired remote's name
	if err := mod.RenameRemote(tempRemoteName, retire); err != nil {
		return err
	}

	// the pinned commit must still be reachable through the migrated
	// remote's tracking branch; otherwise retarget to its tip
	ref, err := mod.RemoteBranchRef(retire, branch)
	if err != nil {
		return err
	}
	contained, err := mod.Contains(ref.Hash(), cur.PinnedCommit())
	if err != nil {
		return err
	}
	if !contained {
		r.splog.Warn("commit %s of submodule %s is not contained in the tracking branch at the new remote, targeting the tip of %s/%s instead",
			cur.PinnedCommit(), cur.Name(), retire, branch)
		cur.SetPinnedCommit(ref.Hash())
	}

	return nil
}

// rewireBranch points the module at cur's branch: the local branch is
// created (or reused) and set to track the matching remote branch. The
// previously tracked branch is deleted when it contributes no commits beyond
// the new branch; that cleanup is best-effort and never fatal.
func (r *Reconciler) rewireBranch(prevBranch string, cur *submodule.Record) error {
	mod, err := cur.Module()
	if err != nil {
		return err
	}

	branch, err := cur.BranchName()
	if err != nil {
		return err
	}

	if !mod.BranchExists(branch) {
		head, err := mod.HeadHash()
		if err != nil {
			return err
		}
		if err := mod.CreateBranch(branch, head); err != nil {
			return err
		}
	}

	remoteName, _, err := mod.FindRemoteBranch(branch)
	if err != nil {
		return err
	}
	if err := mod.SetUpstream(branch, remoteName, branch); err != nil {
		return err
	}

	// move HEAD off the old branch so the cleanup never leaves it dangling
	if current, err := mod.CurrentBranch(); err == nil && current == prevBranch {
		if err := mod.SetHeadToBranch(branch); err != nil {
			return err
		}
	}

	r.cleanupStaleBranch(mod, prevBranch, branch)
	return nil
}

// cleanupStaleBranch deletes prevBranch when every one of its commits is
// already reachable from branch. Any resolution failure aborts the cleanup
// silently.
func (r *Reconciler) cleanupStaleBranch(mod *git.Repository, prevBranch, branch string) {
	prevHash, err := mod.BranchHash(prevBranch)
	if err != nil {
		return
	}
	newHash, err := mod.BranchHash(branch)
	if err != nil {
		return
	}

	ahead, err := mod.CherryCount(newHash, prevHash)
	if err != nil || ahead != 0 {
		return
	}

	if err := mod.DeleteBranch(prevBranch); err != nil {
		r.splog.Debug("failed to delete stale branch %s: %v", prevBranch, err)
	}
}
