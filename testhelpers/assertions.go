package testhelpers

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. This is useful for test setup code
// where errors are not expected and should halt execution immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectBranches asserts that the repository has the expected local branches.
func ExpectBranches(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()

	output, err := repo.RunGitCommandAndGetOutput("for-each-ref", "refs/heads/", "--format=%(refname:short)")
	require.NoError(t, err, "Failed to list branches")

	branches := []string{}
	for _, b := range strings.Split(output, "\n") {
		b = strings.TrimSpace(b)
		if b != "" {
			branches = append(branches, b)
		}
	}

	sort.Strings(branches)
	sort.Strings(expected)

	require.Equal(t, expected, branches, "Branches do not match")
}

// ExpectSubmoduleNames asserts that .gitmodules in the worktree records
// exactly the expected submodule names.
func ExpectSubmoduleNames(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()

	output, _ := repo.RunGitCommandAndGetOutput("config", "-f", ".gitmodules", "--get-regexp", `submodule\..*\.path`)

	names := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key := strings.Fields(line)[0]
		name := strings.TrimSuffix(strings.TrimPrefix(key, "submodule."), ".path")
		names = append(names, name)
	}

	sort.Strings(names)
	sort.Strings(expected)

	require.Equal(t, expected, names, "Submodule names do not match")
}
