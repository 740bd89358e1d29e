// Package runtime provides the context type commands operate on: the opened
// repository plus the output logger. This avoids passing multiple parameters
// through every command.
package runtime

import (
	"os"

	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/output"
)

// Context provides access to the repository and output for commands
type Context struct {
	Repo  *git.Repository
	Splog *output.Splog
}

// NewContext opens the repository containing the current working directory
// and builds a context around it.
func NewContext() (*Context, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	repo, err := git.Open(wd)
	if err != nil {
		return nil, err
	}

	return &Context{
		Repo:  repo,
		Splog: output.NewSplog(),
	}, nil
}
