package engine_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/output"
	"submod.dev/submod/internal/submodule"
	"submod.dev/submod/testhelpers"
)

func newSplog() *output.Splog {
	return output.NewSplogWriter(io.Discard)
}

// setupParent builds a parent repository with one committed submodule "lib"
// at path "lib", cloned from a dedicated upstream repository.
func setupParent(t *testing.T) (*testhelpers.Scene, *testhelpers.GitRepo, *git.Repository) {
	t.Helper()

	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	upstream := scene.CreateUpstream(t, "libup")
	require.NoError(t, scene.Repo.AddSubmodule("lib", "lib", upstream.Dir))
	require.NoError(t, scene.Repo.Commit("add lib"))

	repo, err := git.Open(scene.Repo.Dir)
	require.NoError(t, err)
	return scene, upstream, repo
}

// openParent opens the scene's parent repository.
func openParent(t *testing.T, scene *testhelpers.Scene) *git.Repository {
	t.Helper()

	repo, err := git.Open(scene.Repo.Dir)
	require.NoError(t, err)
	return repo
}

// headRecord loads the record of the named submodule from the HEAD snapshot.
func headRecord(t *testing.T, repo *git.Repository, name string) *submodule.Record {
	t.Helper()

	snap, err := submodule.LoadHead(repo)
	require.NoError(t, err)
	rec := snap.Get(name)
	require.NotNil(t, rec, "submodule %s is not configured", name)
	return rec
}

// snapshotAt loads the submodule snapshot recorded at the given revision.
func snapshotAt(t *testing.T, repo *git.Repository, rev string) *submodule.Snapshot {
	t.Helper()

	commit, err := repo.ResolveCommit(rev)
	require.NoError(t, err)
	snap, err := submodule.Load(repo, commit)
	require.NoError(t, err)
	return snap
}
