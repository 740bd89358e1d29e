// Package gitmodules reads and writes the .gitmodules file of a repository,
// either from the working tree or from the blob recorded at a commit.
package gitmodules

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	gitcfg "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	submoderrors "submod.dev/submod/internal/errors"
	"submod.dev/submod/internal/git"
)

// FileName is the name of the submodule configuration file.
const FileName = ".gitmodules"

const sectionName = "submodule"

// Config is a submodule configuration store. Read-only stores are backed by
// a blob at some commit; writable stores are backed by the working tree file
// and flush through the index.
type Config struct {
	raw      *gitcfg.Config
	repo     *git.Repository
	readOnly bool
	path     string // worktree file path, set only for writable stores
	onWrite  func()
}

// LoadCommit opens the configuration as recorded at the given commit,
// read-only. When the commit is the repository HEAD and a working tree
// exists, the working tree file is used so uncommitted edits are visible.
// A repository without a .gitmodules file yields an empty configuration.
func LoadCommit(repo *git.Repository, commit *object.Commit) (*Config, error) {
	cfg := &Config{
		raw:      gitcfg.New(),
		repo:     repo,
		readOnly: true,
	}

	if !repo.IsBare() {
		if head, err := repo.HeadHash(); err == nil && head == commit.Hash {
			data, err := os.ReadFile(filepath.Join(repo.Root(), FileName))
			if err != nil {
				if os.IsNotExist(err) {
					return cfg, nil
				}
				return nil, fmt.Errorf("failed to read %s: %v: %w", FileName, err, submoderrors.ErrIOFailure)
			}
			return cfg, cfg.decode(data)
		}
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", commit.Hash, err)
	}

	file, err := tree.File(FileName)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to find %s in commit %s: %w", FileName, commit.Hash, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s blob: %w", FileName, err)
	}

	return cfg, cfg.decode([]byte(contents))
}

// LoadWorktree opens the working tree configuration file for writing. It
// fails immediately when the file is missing (unless create is set) or the
// repository is bare, rather than deferring the error to the first write.
// onWrite is invoked after every successful Flush.
func LoadWorktree(repo *git.Repository, create bool, onWrite func()) (*Config, error) {
	if repo.IsBare() {
		return nil, submoderrors.NewBareRepositoryError("config write")
	}

	path := filepath.Join(repo.Root(), FileName)
	cfg := &Config{
		raw:     gitcfg.New(),
		repo:    repo,
		path:    path,
		onWrite: onWrite,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && create {
			return cfg, nil
		}
		return nil, fmt.Errorf("%s was not accessible: %v: %w", path, err, submoderrors.ErrIOFailure)
	}

	return cfg, cfg.decode(data)
}

func (c *Config) decode(data []byte) error {
	if err := gitcfg.NewDecoder(bytes.NewReader(data)).Decode(c.raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return nil
}

// Names returns the configured submodule names, sorted.
func (c *Config) Names() []string {
	section := c.raw.Section(sectionName)
	names := make([]string, 0, len(section.Subsections))
	for _, sub := range section.Subsections {
		names = append(names, sub.Name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a submodule section exists.
func (c *Config) Has(name string) bool {
	return c.raw.Section(sectionName).HasSubsection(name)
}

// HasOption reports whether a submodule section carries the given key.
func (c *Config) HasOption(name, key string) bool {
	if !c.Has(name) {
		return false
	}
	return c.raw.Section(sectionName).Subsection(name).HasOption(key)
}

// Value returns the value of key in the named submodule section.
func (c *Config) Value(name, key string) (string, error) {
	if !c.Has(name) {
		return "", submoderrors.NewSubmoduleNotFoundError(name, "")
	}
	sub := c.raw.Section(sectionName).Subsection(name)
	if !sub.HasOption(key) {
		return "", fmt.Errorf("submodule %s has no %s: %w", name, key, submoderrors.ErrNotFound)
	}
	return sub.Option(key), nil
}

// ValueDefault returns the value of key, or def when absent.
func (c *Config) ValueDefault(name, key, def string) string {
	value, err := c.Value(name, key)
	if err != nil {
		return def
	}
	return value
}

// SetValue sets key in the named submodule section, creating the section as
// needed. The change is held in memory until Flush.
func (c *Config) SetValue(name, key, value string) error {
	if c.readOnly {
		return fmt.Errorf("cannot write a historical submodule configuration: %w", submoderrors.ErrInvalidState)
	}
	c.raw.Section(sectionName).Subsection(name).SetOption(key, value)
	return nil
}

// RemoveSection drops the named submodule section. A missing section is not
// an error.
func (c *Config) RemoveSection(name string) error {
	if c.readOnly {
		return fmt.Errorf("cannot write a historical submodule configuration: %w", submoderrors.ErrInvalidState)
	}
	section := c.raw.Section(sectionName)
	if section.HasSubsection(name) {
		section.RemoveSubsection(name)
	}
	return nil
}

// Flush writes the configuration back to the working tree file, stages it in
// the index and invokes the onWrite notification.
func (c *Config) Flush() error {
	if c.readOnly {
		return fmt.Errorf("cannot write a historical submodule configuration: %w", submoderrors.ErrInvalidState)
	}

	var buf bytes.Buffer
	if err := gitcfg.NewEncoder(&buf).Encode(c.raw); err != nil {
		return fmt.Errorf("failed to encode %s: %w", FileName, err)
	}

	if err := os.WriteFile(c.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %v: %w", c.path, err, submoderrors.ErrIOFailure)
	}

	if err := c.repo.StagePath(FileName); err != nil {
		return err
	}

	if c.onWrite != nil {
		c.onWrite()
	}
	return nil
}
