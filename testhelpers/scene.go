package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
)

// Scene represents a test scene: a temporary directory holding a parent
// repository plus any upstream repositories tests clone submodules from.
type Scene struct {
	Dir    string
	Repo   *GitRepo
	oldDir string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene with a temporary directory and a parent
// Git repository at <dir>/repo. It automatically handles cleanup using
// t.Cleanup().
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "submod-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}

	repo, err := NewGitRepo(filepath.Join(tmpDir, "repo"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{
		Dir:    tmpDir,
		Repo:   repo,
		oldDir: oldDir,
	}

	if err := os.Chdir(repo.Dir); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to change directory: %v", err)
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			os.Chdir(oldDir)
			os.RemoveAll(tmpDir)
			t.Fatalf("Setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		os.Chdir(oldDir)
		if os.Getenv("DEBUG") == "" {
			os.RemoveAll(tmpDir)
		}
	})

	return scene
}

// CreateUpstream creates a repository at <dir>/<name> with a single commit on
// master, suitable as a submodule clone source.
func (s *Scene) CreateUpstream(t *testing.T, name string) *GitRepo {
	t.Helper()

	upstream, err := NewGitRepo(filepath.Join(s.Dir, name))
	if err != nil {
		t.Fatalf("Failed to create upstream repo %s: %v", name, err)
	}
	if err := upstream.CreateChangeAndCommit("initial "+name, name); err != nil {
		t.Fatalf("Failed to seed upstream repo %s: %v", name, err)
	}
	return upstream
}

// BasicSceneSetup is a setup function that creates a basic scene with a
// single commit in the parent repository.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}
