package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	submoderrors "submod.dev/submod/internal/errors"
)

// RemoteInfo describes a configured remote.
type RemoteInfo struct {
	Name string
	URL  string
}

// RemoteInfos returns the configured remotes sorted by name.
func (r *Repository) RemoteInfos() ([]RemoteInfo, error) {
	remotes, err := r.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	infos := make([]RemoteInfo, 0, len(remotes))
	for _, remote := range remotes {
		cfg := remote.Config()
		url := ""
		if len(cfg.URLs) > 0 {
			url = cfg.URLs[0]
		}
		infos = append(infos, RemoteInfo{Name: cfg.Name, URL: url})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// AddRemote creates a remote with the default fetch refspec.
func (r *Repository) AddRemote(name, url string) error {
	_, err := r.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to create remote %s: %w", name, err)
	}
	return nil
}

// RemoveRemote deletes a remote from the configuration. Its remote-tracking
// refs are left in place so fetched history stays resolvable.
func (r *Repository) RemoveRemote(name string) error {
	if err := r.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to delete remote %s: %w", name, err)
	}
	return nil
}

// RenameRemote renames a remote, carrying its URL over and moving its
// remote-tracking refs so fetched history survives the rename.
func (r *Repository) RenameRemote(oldName, newName string) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	rc, ok := cfg.Remotes[oldName]
	if !ok {
		return fmt.Errorf("remote %s: %w", oldName, submoderrors.ErrNotFound)
	}

	delete(cfg.Remotes, oldName)
	cfg.Remotes[newName] = &config.RemoteConfig{
		Name:  newName,
		URLs:  rc.URLs,
		Fetch: []config.RefSpec{config.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", newName))},
	}

	if err := r.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// move refs/remotes/<old>/* to refs/remotes/<new>/*
	oldPrefix := fmt.Sprintf("refs/remotes/%s/", oldName)
	newPrefix := fmt.Sprintf("refs/remotes/%s/", newName)

	refs, err := r.References()
	if err != nil {
		return fmt.Errorf("failed to list references: %w", err)
	}

	var moved []*plumbing.Reference
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(string(ref.Name()), oldPrefix) {
			moved = append(moved, ref)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to iterate references: %w", err)
	}

	for _, ref := range moved {
		renamed := plumbing.ReferenceName(newPrefix + strings.TrimPrefix(string(ref.Name()), oldPrefix))
		if err := r.Storer.SetReference(plumbing.NewHashReference(renamed, ref.Hash())); err != nil {
			return fmt.Errorf("failed to move ref %s: %w", ref.Name(), err)
		}
		if err := r.Storer.RemoveReference(ref.Name()); err != nil {
			return fmt.Errorf("failed to remove ref %s: %w", ref.Name(), err)
		}
	}

	return nil
}

// FetchRemote fetches one remote. An already up-to-date remote is success.
func (r *Repository) FetchRemote(ctx context.Context, name string) error {
	remote, err := r.Remote(name)
	if err != nil {
		return fmt.Errorf("remote %s: %w", name, submoderrors.ErrNotFound)
	}

	err = remote.FetchContext(ctx, &gogit.FetchOptions{RemoteName: name})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch %s: %v: %w", name, err, submoderrors.ErrIOFailure)
	}
	return nil
}

// FetchAll fetches every configured remote.
func (r *Repository) FetchAll(ctx context.Context) error {
	infos, err := r.RemoteInfos()
	if err != nil {
		return err
	}

	for _, info := range infos {
		if err := r.FetchRemote(ctx, info.Name); err != nil {
			return err
		}
	}
	return nil
}

// RemoteBranches returns the short branch names a remote carries, based on
// its remote-tracking refs.
func (r *Repository) RemoteBranches(name string) ([]string, error) {
	prefix := fmt.Sprintf("refs/remotes/%s/", name)

	refs, err := r.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	var branches []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		refName := string(ref.Name())
		if !strings.HasPrefix(refName, prefix) {
			return nil
		}
		short := strings.TrimPrefix(refName, prefix)
		if short == "HEAD" {
			return nil
		}
		branches = append(branches, short)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}

	sort.Strings(branches)
	return branches, nil
}

// RemoteBranchRef returns the remote-tracking ref for branch at the remote.
func (r *Repository) RemoteBranchRef(remote, branch string) (*plumbing.Reference, error) {
	ref, err := r.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		return nil, fmt.Errorf("remote branch %s/%s: %w", remote, branch, submoderrors.ErrNotFound)
	}
	return ref, nil
}

// FindRemoteBranch returns the first remote (in name order) carrying branch,
// together with its remote-tracking ref.
func (r *Repository) FindRemoteBranch(branch string) (string, *plumbing.Reference, error) {
	infos, err := r.RemoteInfos()
	if err != nil {
		return "", nil, err
	}

	for _, info := range infos {
		ref, err := r.RemoteBranchRef(info.Name, branch)
		if err == nil {
			return info.Name, ref, nil
		}
	}

	return "", nil, submoderrors.NewBranchNotFoundError(branch)
}
