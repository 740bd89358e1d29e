package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"submod.dev/submod/internal/engine"
	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/testhelpers"
)

// dropSubmoduleConfig removes a submodule from the parent's configuration and
// index, committing the result while leaving the checkout on disk.
func dropSubmoduleConfig(t *testing.T, parent *testhelpers.GitRepo, name, path string) {
	t.Helper()

	require.NoError(t, parent.RunGitCommand("rm", "--cached", path))
	require.NoError(t, parent.RunGitCommand("config", "-f", ".gitmodules", "--remove-section", "submodule."+name))
	require.NoError(t, parent.RunGitCommand("add", ".gitmodules"))
	require.NoError(t, parent.Commit("drop "+name))
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("no changes means no operations", func(t *testing.T) {
		scene, _, repo := setupParent(t)

		snap := snapshotAt(t, repo, "HEAD")
		err := engine.NewReconciler(repo, newSplog()).Reconcile(ctx, snap, snap, engine.ReconcileOptions{})
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(scene.Repo.Dir, "lib"))
		require.NoError(t, err)
	})

	t.Run("deletes the checkout of a removed submodule", func(t *testing.T) {
		scene, _, repo := setupParent(t)
		prev := snapshotAt(t, repo, "HEAD")

		dropSubmoduleConfig(t, scene.Repo, "lib", "lib")
		cur := snapshotAt(t, repo, "HEAD")

		err := engine.NewReconciler(repo, newSplog()).Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(scene.Repo.Dir, "lib"))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("refuses to delete a removed submodule with unpushed commits", func(t *testing.T) {
		scene, _, repo := setupParent(t)
		prev := snapshotAt(t, repo, "HEAD")

		mod, err := testhelpers.ExistingGitRepo(filepath.Join(scene.Repo.Dir, "lib"))
		require.NoError(t, err)
		require.NoError(t, mod.CreateChangeAndCommit("local only", "local"))

		dropSubmoduleConfig(t, scene.Repo, "lib", "lib")
		cur := snapshotAt(t, repo, "HEAD")

		reconciler := engine.NewReconciler(repo, newSplog())
		err = reconciler.Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		require.ErrorIs(t, err, submoderrors.ErrConflict)

		// forcing overrides the refusal
		err = reconciler.Reconcile(ctx, prev, cur, engine.ReconcileOptions{ForceRemove: true})
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(scene.Repo.Dir, "lib"))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("moves the checkout after a path change", func(t *testing.T) {
		scene, _, repo := setupParent(t)
		prev := snapshotAt(t, repo, "HEAD")

		// record the new path without touching the checkout
		sha, err := scene.Repo.RunGitCommandAndGetOutput("rev-parse", "HEAD:lib")
		require.NoError(t, err)
		require.NoError(t, scene.Repo.SetGitmodulesValue("lib", "path", "libs/core"))
		require.NoError(t, scene.Repo.RunGitCommand("rm", "--cached", "lib"))
		require.NoError(t, scene.Repo.RunGitCommand("update-index", "--add", "--cacheinfo", "160000,"+sha+",libs/core"))
		require.NoError(t, scene.Repo.Commit("move lib"))
		cur := snapshotAt(t, repo, "HEAD")

		err = engine.NewReconciler(repo, newSplog()).Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(scene.Repo.Dir, "libs", "core"))
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(scene.Repo.Dir, "lib"))
		require.True(t, os.IsNotExist(err))
		require.True(t, cur.Get("lib").ModuleExists())
	})

	t.Run("migrates the remote after a url change", func(t *testing.T) {
		scene, upstream, repo := setupParent(t)
		prev := snapshotAt(t, repo, "HEAD")

		// a mirror of the upstream with identical history
		mirror, err := testhelpers.NewGitRepoFromURL(filepath.Join(scene.Dir, "mirror"), upstream.Dir)
		require.NoError(t, err)

		require.NoError(t, scene.Repo.SetGitmodulesValue("lib", "url", mirror.Dir))
		require.NoError(t, scene.Repo.Commit("migrate lib url"))
		cur := snapshotAt(t, repo, "HEAD")

		err = engine.NewReconciler(repo, newSplog()).Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		require.NoError(t, err)

		mod, err := cur.Get("lib").Module()
		require.NoError(t, err)
		remotes, err := mod.RemoteInfos()
		require.NoError(t, err)
		require.Len(t, remotes, 1)
		require.Equal(t, "origin", remotes[0].Name, "the remote keeps its identity across the swap")
		require.Equal(t, mirror.Dir, remotes[0].URL)

		_, err = mod.RemoteBranchRef("origin", "master")
		require.NoError(t, err)
	})

	t.Run("retargets the pinned commit when the new remote lacks it", func(t *testing.T) {
		scene, _, repo := setupParent(t)
		prev := snapshotAt(t, repo, "HEAD")

		// an unrelated repository with its own master
		other := scene.CreateUpstream(t, "otherup")
		otherSHA, err := other.GetCurrentSHA()
		require.NoError(t, err)

		require.NoError(t, scene.Repo.SetGitmodulesValue("lib", "url", other.Dir))
		require.NoError(t, scene.Repo.Commit("migrate lib url"))
		cur := snapshotAt(t, repo, "HEAD")

		err = engine.NewReconciler(repo, newSplog()).Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		require.NoError(t, err)
		require.Equal(t, otherSHA, cur.Get("lib").PinnedCommit().String())
	})

	t.Run("fails when the tracked branch is missing at the new url", func(t *testing.T) {
		scene, _, repo := setupParent(t)
		prev := snapshotAt(t, repo, "HEAD")

		other := scene.CreateUpstream(t, "otherup")
		require.NoError(t, other.RunGitCommand("branch", "-m", "master", "main"))

		require.NoError(t, scene.Repo.SetGitmodulesValue("lib", "url", other.Dir))
		require.NoError(t, scene.Repo.Commit("migrate lib url"))
		cur := snapshotAt(t, repo, "HEAD")

		err := engine.NewReconciler(repo, newSplog()).Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		var unavailable *submoderrors.BranchUnavailableError
		require.ErrorAs(t, err, &unavailable)
		require.Equal(t, "master", unavailable.BranchName)
	})

	t.Run("rewires the tracking branch after a branch change", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		require.NoError(t, upstream.CreateAndCheckoutBranch("dev"))
		require.NoError(t, upstream.CreateChangeAndCommit("dev work", "dev"))
		require.NoError(t, upstream.CheckoutBranch("master"))

		require.NoError(t, scene.Repo.AddSubmodule("lib", "lib", upstream.Dir))
		require.NoError(t, scene.Repo.Commit("add lib"))

		repo := openParent(t, scene)
		prev := snapshotAt(t, repo, "HEAD")

		require.NoError(t, scene.Repo.SetGitmodulesValue("lib", "branch", "dev"))
		require.NoError(t, scene.Repo.Commit("track dev"))
		cur := snapshotAt(t, repo, "HEAD")

		err := engine.NewReconciler(repo, newSplog()).Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		require.NoError(t, err)

		mod, err := cur.Get("lib").Module()
		require.NoError(t, err)

		branch, err := mod.CurrentBranch()
		require.NoError(t, err)
		require.Equal(t, "dev", branch)
		require.True(t, mod.BranchExists("dev"))
		require.False(t, mod.BranchExists("master"), "the fully merged old branch is deleted")

		ref, err := mod.TrackingRefOf("dev")
		require.NoError(t, err)
		require.NotNil(t, ref)
	})

	t.Run("keeps the old branch when it has extra commits", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		require.NoError(t, upstream.CreateBranch("dev"))

		require.NoError(t, scene.Repo.AddSubmodule("lib", "lib", upstream.Dir))
		require.NoError(t, scene.Repo.Commit("add lib"))

		repo := openParent(t, scene)
		prev := snapshotAt(t, repo, "HEAD")

		// pin a local dev branch, then move master ahead of it
		mod, err := testhelpers.ExistingGitRepo(filepath.Join(scene.Repo.Dir, "lib"))
		require.NoError(t, err)
		require.NoError(t, mod.CreateBranch("dev"))
		require.NoError(t, mod.CreateChangeAndCommit("ahead", "ahead"))

		require.NoError(t, scene.Repo.SetGitmodulesValue("lib", "branch", "dev"))
		require.NoError(t, scene.Repo.Commit("track dev"))
		cur := snapshotAt(t, repo, "HEAD")

		err = engine.NewReconciler(repo, newSplog()).Reconcile(ctx, prev, cur, engine.ReconcileOptions{})
		require.NoError(t, err)

		modRepo, err := cur.Get("lib").Module()
		require.NoError(t, err)
		require.True(t, modRepo.BranchExists("master"), "a branch with unmerged commits survives")
		require.True(t, modRepo.BranchExists("dev"))
	})
}
