package git

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitcfg "github.com/go-git/go-git/v5/plumbing/format/config"

	submoderrors "submod.dev/submod/internal/errors"
)

const gitdirPrefix = "gitdir: "

// RelocateModule fixes up a module checkout that was moved on disk from
// prevAbs to newAbs. With an absorbed git directory the checkout holds a
// .git file whose gitdir pointer is relative to the old location, and the
// git directory's config carries a core.worktree pointing back at the old
// checkout; both are rewritten for the new location. A checkout with its
// own .git directory needs no fixup.
func RelocateModule(prevAbs, newAbs string) error {
	gitfile := filepath.Join(newAbs, ".git")
	info, err := os.Lstat(gitfile)
	if err != nil || info.IsDir() {
		return nil
	}

	data, err := os.ReadFile(gitfile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v: %w", gitfile, err, submoderrors.ErrIOFailure)
	}
	raw := strings.TrimSpace(string(data))
	if !strings.HasPrefix(raw, "gitdir:") {
		return fmt.Errorf("%s carries no gitdir pointer: %w", gitfile, submoderrors.ErrInvalidState)
	}
	pointer := strings.TrimSpace(strings.TrimPrefix(raw, "gitdir:"))

	gitdir := pointer
	if !filepath.IsAbs(gitdir) {
		// the pointer was written relative to the previous location
		gitdir = filepath.Join(prevAbs, filepath.FromSlash(pointer))
		rel, err := filepath.Rel(newAbs, gitdir)
		if err != nil {
			return fmt.Errorf("no relative path from %s to %s: %v: %w", newAbs, gitdir, err, submoderrors.ErrIOFailure)
		}
		content := gitdirPrefix + filepath.ToSlash(rel) + "\n"
		if err := os.WriteFile(gitfile, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to rewrite %s: %v: %w", gitfile, err, submoderrors.ErrIOFailure)
		}
	}

	return rewriteWorktreePointer(gitdir, newAbs)
}

// rewriteWorktreePointer updates core.worktree in the module's git directory
// so it points back at the relocated checkout.
func rewriteWorktreePointer(gitdir, newAbs string) error {
	configPath := filepath.Join(gitdir, "config")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil
	}

	cfg := gitcfg.New()
	if err := gitcfg.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %v: %w", configPath, err, submoderrors.ErrIOFailure)
	}

	core := cfg.Section("core")
	if !core.HasOption("worktree") {
		return nil
	}

	rel, err := filepath.Rel(gitdir, newAbs)
	if err != nil {
		return fmt.Errorf("no relative path from %s to %s: %v: %w", gitdir, newAbs, err, submoderrors.ErrIOFailure)
	}
	core.SetOption("worktree", filepath.ToSlash(rel))

	var buf bytes.Buffer
	if err := gitcfg.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode %s: %v: %w", configPath, err, submoderrors.ErrIOFailure)
	}
	if err := os.WriteFile(configPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to rewrite %s: %v: %w", configPath, err, submoderrors.ErrIOFailure)
	}
	return nil
}
