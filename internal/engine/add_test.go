package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"submod.dev/submod/internal/engine"
	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/gitmodules"
	"submod.dev/submod/testhelpers"
)

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("clones and registers a new submodule", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		repo := openParent(t, scene)

		rec, err := engine.Add(ctx, repo, engine.AddOptions{Path: "lib", URL: upstream.Dir})
		require.NoError(t, err)
		require.Equal(t, "lib", rec.Name())

		// checkout present and pinned at the upstream head
		_, err = os.Stat(filepath.Join(scene.Repo.Dir, "lib", "libup_test.txt"))
		require.NoError(t, err)
		upstreamSHA, err := upstream.GetCurrentSHA()
		require.NoError(t, err)
		require.Equal(t, upstreamSHA, rec.PinnedCommit().String())

		// .gitmodules, .git/config and the index all record it
		cfg, err := gitmodules.LoadWorktree(repo, false, nil)
		require.NoError(t, err)
		url, err := cfg.Value("lib", "url")
		require.NoError(t, err)
		require.Equal(t, upstream.Dir, url)
		path, err := cfg.Value("lib", "path")
		require.NoError(t, err)
		require.Equal(t, "lib", path)

		localURL, err := scene.Repo.RunGitCommandAndGetOutput("config", "--local", "--get", "submodule.lib.url")
		require.NoError(t, err)
		require.Equal(t, upstream.Dir, localURL)

		require.True(t, repo.HasIndexEntry("lib"))
	})

	t.Run("records the branch option when given", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		repo := openParent(t, scene)

		rec, err := engine.Add(ctx, repo, engine.AddOptions{Path: "lib", URL: upstream.Dir, Branch: "master"})
		require.NoError(t, err)

		branch, err := rec.BranchName()
		require.NoError(t, err)
		require.Equal(t, "master", branch)

		cfg, err := gitmodules.LoadWorktree(repo, false, nil)
		require.NoError(t, err)
		require.True(t, cfg.HasOption("lib", "branch"))
	})

	t.Run("returns the existing record for a configured name", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		repo := openParent(t, scene)

		first, err := engine.Add(ctx, repo, engine.AddOptions{Path: "lib", URL: upstream.Dir})
		require.NoError(t, err)

		again, err := engine.Add(ctx, repo, engine.AddOptions{Path: "lib", URL: "ignored"})
		require.NoError(t, err)
		require.Equal(t, first.Name(), again.Name())
		path, err := again.Path()
		require.NoError(t, err)
		require.Equal(t, "lib", path)
	})

	t.Run("adopts the remote of a pre-existing checkout", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		repo := openParent(t, scene)

		_, err := testhelpers.NewGitRepoFromURL(filepath.Join(scene.Repo.Dir, "vendor"), upstream.Dir)
		require.NoError(t, err)

		rec, err := engine.Add(ctx, repo, engine.AddOptions{Path: "vendor"})
		require.NoError(t, err)

		url, err := rec.URL()
		require.NoError(t, err)
		require.Equal(t, upstream.Dir, url)
	})

	t.Run("rejects a url that matches no remote of the checkout", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		repo := openParent(t, scene)

		_, err := testhelpers.NewGitRepoFromURL(filepath.Join(scene.Repo.Dir, "vendor"), upstream.Dir)
		require.NoError(t, err)

		_, err = engine.Add(ctx, repo, engine.AddOptions{Path: "vendor", URL: "/somewhere/else"})
		require.ErrorIs(t, err, submoderrors.ErrConflict)
	})

	t.Run("requires a url when nothing is checked out", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo := openParent(t, scene)

		_, err := engine.Add(ctx, repo, engine.AddOptions{Path: "missing"})
		require.ErrorIs(t, err, submoderrors.ErrInvalidState)
	})

	t.Run("requires a path", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo := openParent(t, scene)

		_, err := engine.Add(ctx, repo, engine.AddOptions{URL: "/somewhere"})
		require.ErrorIs(t, err, submoderrors.ErrInvalidState)
	})

	t.Run("honors an explicit name distinct from the path", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		upstream := scene.CreateUpstream(t, "libup")
		repo := openParent(t, scene)

		rec, err := engine.Add(ctx, repo, engine.AddOptions{Name: "core", Path: "libs/core", URL: upstream.Dir})
		require.NoError(t, err)
		require.Equal(t, "core", rec.Name())

		testhelpers.ExpectSubmoduleNames(t, scene.Repo, []string{"core"})
	})
}
