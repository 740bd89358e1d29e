package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/gitmodules"
	"submod.dev/submod/internal/submodule"
)

// AddOptions describes a submodule to register.
type AddOptions struct {
	// Name identifies the submodule; defaults to the path.
	Name string
	// Path is the working-tree relative location of the checkout.
	Path string
	// URL is the remote to clone from. When empty, a repository must already
	// exist at the path and the url of its first remote is recorded instead.
	URL string
	// Branch is written to the configuration when non-empty; the clone
	// checks it out.
	Branch string
	// NoCheckout clones without populating the working tree.
	NoCheckout bool
}

// Add registers a new submodule: it clones the module if needed, records it
// in .gitmodules and .git/config, and stages both the configuration file and
// the module's current commit in the index. Adding an already-configured
// name returns the existing record unchanged.
func Add(ctx context.Context, repo *git.Repository, opts AddOptions) (*submodule.Record, error) {
	if repo.IsBare() {
		return nil, submoderrors.NewBareRepositoryError("add")
	}

	path := strings.TrimSuffix(filepath.ToSlash(opts.Path), "/")
	if path == "" {
		return nil, fmt.Errorf("a submodule path is required: %w", submoderrors.ErrInvalidState)
	}
	name := opts.Name
	if name == "" {
		name = path
	}

	head, err := repo.HeadCommit()
	if err != nil {
		return nil, err
	}

	// an existing submodule is returned as-is, whatever its configuration
	snap, err := submodule.Load(repo, head)
	if err != nil {
		return nil, err
	}
	if rec := snap.Get(name); rec != nil {
		return rec, nil
	}

	abs := filepath.Join(repo.Root(), filepath.FromSlash(path))
	mod, modErr := git.OpenModule(abs)
	hasModule := modErr == nil

	url := opts.URL
	switch {
	case url == "" && !hasModule:
		return nil, fmt.Errorf("no url was given and no repository exists at %s: %w", path, submoderrors.ErrInvalidState)
	case url == "":
		remotes, err := mod.RemoteInfos()
		if err != nil {
			return nil, err
		}
		if len(remotes) == 0 {
			return nil, fmt.Errorf("repository at %s has no remote to take a url from: %w", path, submoderrors.ErrInvalidState)
		}
		url = remotes[0].URL
	case hasModule:
		remotes, err := mod.RemoteInfos()
		if err != nil {
			return nil, err
		}
		found := false
		for _, remote := range remotes {
			if remote.URL == url {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("url %s does not match any remote of the repository at %s: %w", url, path, submoderrors.ErrConflict)
		}
	default:
		mod, err = git.Clone(ctx, url, abs, opts.Branch, opts.NoCheckout)
		if err != nil {
			return nil, err
		}
	}

	modHead, err := mod.HeadHash()
	if err != nil {
		return nil, err
	}
	rec := submodule.NewRecord(repo, name, head, modHead)

	writer, err := gitmodules.LoadWorktree(repo, true, rec.Invalidate)
	if err != nil {
		return nil, err
	}
	if err := writer.SetValue(name, submodule.KeyURL, url); err != nil {
		return nil, err
	}
	if err := writer.SetValue(name, submodule.KeyPath, path); err != nil {
		return nil, err
	}
	if opts.Branch != "" {
		if err := writer.SetValue(name, submodule.KeyBranch, opts.Branch); err != nil {
			return nil, err
		}
	}
	if err := writer.Flush(); err != nil {
		return nil, err
	}

	// git records the url in the repository's own config as well
	if err := repo.SetSubmoduleConfig(name, submodule.KeyURL, url); err != nil {
		return nil, err
	}

	if err := repo.SetModuleIndexEntry(path, modHead); err != nil {
		return nil, err
	}

	return rec, nil
}
