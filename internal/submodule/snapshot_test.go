package submodule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/gitmodules"
	"submod.dev/submod/internal/submodule"
	"submod.dev/submod/testhelpers"
)

// submoduleScene builds a parent repository with one committed submodule
// "lib" at path "lib" cloned from a dedicated upstream repository.
func submoduleScene(t *testing.T) (*testhelpers.Scene, *testhelpers.GitRepo, *git.Repository) {
	t.Helper()

	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	upstream := scene.CreateUpstream(t, "libup")
	require.NoError(t, scene.Repo.AddSubmodule("lib", "lib", upstream.Dir))
	require.NoError(t, scene.Repo.Commit("add lib"))

	repo, err := git.Open(scene.Repo.Dir)
	require.NoError(t, err)
	return scene, upstream, repo
}

func TestLoad(t *testing.T) {
	t.Run("resolves records from the configuration at HEAD", func(t *testing.T) {
		_, upstream, repo := submoduleScene(t)

		snap, err := submodule.LoadHead(repo)
		require.NoError(t, err)
		require.Equal(t, 1, snap.Len())
		require.Equal(t, []string{"lib"}, snap.Names())
		require.True(t, snap.Has("lib"))

		rec := snap.Get("lib")
		require.NotNil(t, rec)
		require.Equal(t, "lib", rec.Name())

		path, err := rec.Path()
		require.NoError(t, err)
		require.Equal(t, "lib", path)

		url, err := rec.URL()
		require.NoError(t, err)
		require.Equal(t, upstream.Dir, url)

		// no branch option recorded: the default applies
		branch, err := rec.BranchName()
		require.NoError(t, err)
		require.Equal(t, submodule.DefaultBranch, branch)

		upstreamSHA, err := upstream.GetCurrentSHA()
		require.NoError(t, err)
		require.Equal(t, upstreamSHA, rec.PinnedCommit().String())

		require.True(t, rec.Exists())
		require.True(t, rec.ModuleExists())
		require.Nil(t, snap.Get("ghost"))
	})

	t.Run("yields an empty snapshot without configuration", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.Open(scene.Repo.Dir)
		require.NoError(t, err)

		snap, err := submodule.LoadHead(repo)
		require.NoError(t, err)
		require.Equal(t, 0, snap.Len())
		require.Empty(t, snap.Names())
	})
}

func TestDiff(t *testing.T) {
	t.Run("splits names into removed, added and common", func(t *testing.T) {
		scene, _, repo := submoduleScene(t)
		firstSHA, err := scene.Repo.GetCurrentSHA()
		require.NoError(t, err)

		tool := scene.CreateUpstream(t, "toolup")
		require.NoError(t, scene.Repo.AddSubmodule("tool", "tools/tool", tool.Dir))
		require.NoError(t, scene.Repo.Commit("add tool"))
		secondSHA, err := scene.Repo.GetCurrentSHA()
		require.NoError(t, err)

		// drop lib from the configuration, keeping the checkout on disk
		require.NoError(t, scene.Repo.RunGitCommand("rm", "--cached", "lib"))
		require.NoError(t, scene.Repo.RunGitCommand("config", "-f", ".gitmodules", "--remove-section", "submodule.lib"))
		require.NoError(t, scene.Repo.RunGitCommand("add", ".gitmodules"))
		require.NoError(t, scene.Repo.Commit("drop lib"))

		first, err := repo.ResolveCommit(firstSHA)
		require.NoError(t, err)
		second, err := repo.ResolveCommit(secondSHA)
		require.NoError(t, err)
		head, err := repo.HeadCommit()
		require.NoError(t, err)

		firstSnap, err := submodule.Load(repo, first)
		require.NoError(t, err)
		secondSnap, err := submodule.Load(repo, second)
		require.NoError(t, err)
		headSnap, err := submodule.Load(repo, head)
		require.NoError(t, err)

		require.Equal(t, []string{"tool"}, submodule.Added(firstSnap, secondSnap))
		require.Equal(t, []string{"lib"}, submodule.Removed(secondSnap, headSnap))
		require.Equal(t, []string{"tool"}, submodule.Common(secondSnap, headSnap))
		require.Empty(t, submodule.Removed(firstSnap, secondSnap))
	})
}

func TestRecordInvalidate(t *testing.T) {
	t.Run("re-reads the configuration after a registered write", func(t *testing.T) {
		_, _, repo := submoduleScene(t)

		snap, err := submodule.LoadHead(repo)
		require.NoError(t, err)
		rec := snap.Get("lib")

		path, err := rec.Path()
		require.NoError(t, err)
		require.Equal(t, "lib", path)

		writer, err := gitmodules.LoadWorktree(repo, false, rec.Invalidate)
		require.NoError(t, err)
		require.NoError(t, writer.SetValue("lib", submodule.KeyPath, "libs/lib"))
		require.NoError(t, writer.Flush())

		path, err = rec.Path()
		require.NoError(t, err)
		require.Equal(t, "libs/lib", path)
	})
}

func TestSetParentCommit(t *testing.T) {
	t.Run("verifies the section and refreshes the pinned commit", func(t *testing.T) {
		scene, upstream, repo := submoduleScene(t)
		firstSHA, err := scene.Repo.GetCurrentSHA()
		require.NoError(t, err)

		// advance the submodule and record the new commit in the parent
		require.NoError(t, upstream.CreateChangeAndCommit("more", "more"))
		mod, err := testhelpers.ExistingGitRepo(scene.Repo.Dir + "/lib")
		require.NoError(t, err)
		require.NoError(t, mod.RunGitCommand("pull", "origin", "master"))
		require.NoError(t, scene.Repo.RunGitCommand("add", "lib"))
		require.NoError(t, scene.Repo.Commit("bump lib"))

		first, err := repo.ResolveCommit(firstSHA)
		require.NoError(t, err)
		firstSnap, err := submodule.Load(repo, first)
		require.NoError(t, err)
		rec := firstSnap.Get("lib")

		head, err := repo.HeadCommit()
		require.NoError(t, err)
		require.NoError(t, rec.SetParentCommit(head, true))

		newSHA, err := upstream.GetCurrentSHA()
		require.NoError(t, err)
		require.Equal(t, newSHA, rec.PinnedCommit().String())
	})

	t.Run("rejects a commit that does not configure the submodule", func(t *testing.T) {
		scene, _, repo := submoduleScene(t)

		snap, err := submodule.LoadHead(repo)
		require.NoError(t, err)
		rec := snap.Get("lib")
		pinned := rec.PinnedCommit()

		require.NoError(t, scene.Repo.RunGitCommand("rm", "--cached", "lib"))
		require.NoError(t, scene.Repo.RunGitCommand("config", "-f", ".gitmodules", "--remove-section", "submodule.lib"))
		require.NoError(t, scene.Repo.RunGitCommand("add", ".gitmodules"))
		require.NoError(t, scene.Repo.Commit("drop lib"))

		head, err := repo.HeadCommit()
		require.NoError(t, err)

		err = rec.SetParentCommit(head, true)
		require.ErrorIs(t, err, submoderrors.ErrNotFound)
		require.Equal(t, pinned, rec.PinnedCommit(), "a failed rebind must not change the record")
	})

	t.Run("rebinds without checking when asked", func(t *testing.T) {
		scene, _, repo := submoduleScene(t)

		snap, err := submodule.LoadHead(repo)
		require.NoError(t, err)
		rec := snap.Get("lib")
		// resolve before the section disappears
		path, err := rec.Path()
		require.NoError(t, err)

		require.NoError(t, scene.Repo.RunGitCommand("rm", "--cached", "lib"))
		require.NoError(t, scene.Repo.RunGitCommand("config", "-f", ".gitmodules", "--remove-section", "submodule.lib"))
		require.NoError(t, scene.Repo.RunGitCommand("add", ".gitmodules"))
		require.NoError(t, scene.Repo.Commit("drop lib"))

		head, err := repo.HeadCommit()
		require.NoError(t, err)
		require.NoError(t, rec.SetParentCommit(head, false))

		// the cached values survive so the physical checkout still resolves
		got, err := rec.Path()
		require.NoError(t, err)
		require.Equal(t, path, got)
		require.False(t, rec.Exists())
		require.True(t, rec.ModuleExists())
	})
}

func TestChildren(t *testing.T) {
	t.Run("returns an empty snapshot for a module without submodules", func(t *testing.T) {
		_, _, repo := submoduleScene(t)

		snap, err := submodule.LoadHead(repo)
		require.NoError(t, err)
		children, err := snap.Get("lib").Children()
		require.NoError(t, err)
		require.Equal(t, 0, children.Len())
	})

	t.Run("returns an empty snapshot when the module is missing", func(t *testing.T) {
		scene, _, _ := submoduleScene(t)

		// a fresh clone records the submodule but has no checkout
		consumer, err := testhelpers.NewGitRepoFromURL(scene.Dir+"/consumer", scene.Repo.Dir)
		require.NoError(t, err)

		consumerRepo, err := git.Open(consumer.Dir)
		require.NoError(t, err)
		snap, err := submodule.LoadHead(consumerRepo)
		require.NoError(t, err)

		rec := snap.Get("lib")
		require.False(t, rec.ModuleExists())
		children, err := rec.Children()
		require.NoError(t, err)
		require.Equal(t, 0, children.Len())
	})
}
