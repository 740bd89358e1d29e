package git_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/testhelpers"
)

func TestSubmoduleConfig(t *testing.T) {
	t.Run("writes the option through to disk", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.Open(scene.Repo.Dir)
		require.NoError(t, err)

		require.NoError(t, repo.SetSubmoduleConfig("lib", "url", "/some/url"))
		require.NoError(t, repo.SetSubmoduleConfig("lib", "branch", "dev"))

		// read back with git itself so the on-disk file is what is checked
		out, err := scene.Repo.RunGitCommandAndGetOutput("config", "--local", "--get", "submodule.lib.url")
		require.NoError(t, err)
		require.Equal(t, "/some/url", strings.TrimSpace(out))

		out, err = scene.Repo.RunGitCommandAndGetOutput("config", "--local", "--get", "submodule.lib.branch")
		require.NoError(t, err)
		require.Equal(t, "dev", strings.TrimSpace(out))
	})

	t.Run("rejects an unknown option", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.Open(scene.Repo.Dir)
		require.NoError(t, err)

		err = repo.SetSubmoduleConfig("lib", "update", "rebase")
		require.ErrorIs(t, err, submoderrors.ErrInvalidState)
	})

	t.Run("removes the section from disk", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.Open(scene.Repo.Dir)
		require.NoError(t, err)

		require.NoError(t, repo.SetSubmoduleConfig("lib", "url", "/some/url"))
		require.NoError(t, repo.RemoveSubmoduleConfig("lib"))

		_, err = scene.Repo.RunGitCommandAndGetOutput("config", "--local", "--get", "submodule.lib.url")
		require.Error(t, err, "the section must be gone")

		// a missing section is not an error
		require.NoError(t, repo.RemoveSubmoduleConfig("ghost"))
	})
}
