package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/config"

	submoderrors "submod.dev/submod/internal/errors"
)

// SetSubmoduleConfig records a submodule option in the repository's own
// .git/config, mirroring what git records there next to .gitmodules. The
// typed Submodules map is go-git's source of truth when the config is
// written back, so edits go through it rather than the raw section.
func (r *Repository) SetSubmoduleConfig(name, key, value string) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if cfg.Submodules == nil {
		cfg.Submodules = map[string]*config.Submodule{}
	}
	sub, ok := cfg.Submodules[name]
	if !ok {
		sub = &config.Submodule{Name: name}
		cfg.Submodules[name] = sub
	}

	switch key {
	case "url":
		sub.URL = value
	case "path":
		sub.Path = value
	case "branch":
		sub.Branch = value
	default:
		return fmt.Errorf("unsupported submodule option %s: %w", key, submoderrors.ErrInvalidState)
	}

	if err := r.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// RemoveSubmoduleConfig drops a submodule's section from .git/config. A
// missing section is not an error.
func (r *Repository) RemoveSubmoduleConfig(name string) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if _, ok := cfg.Submodules[name]; !ok {
		return nil
	}
	delete(cfg.Submodules, name)

	if err := r.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
