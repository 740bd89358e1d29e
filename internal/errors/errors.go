// Package errors provides sentinel errors and custom error types for the submod application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy
var (
	// ErrInvalidState indicates a structural precondition failure, such as a
	// bare repository where a working tree is required or conflicting flags
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound indicates a missing config section, blob, branch or remote ref
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a safety-check violation: occupied paths, dirty
	// working trees, unpushed commits, or an ambiguous remote
	ErrConflict = errors.New("conflict")

	// ErrIntegrityDegraded indicates the pinned commit became unreachable after
	// a remote migration; callers normally see this as a warning, not an error
	ErrIntegrityDegraded = errors.New("integrity degraded")

	// ErrIOFailure indicates a filesystem or transport failure
	ErrIOFailure = errors.New("io failure")
)

// BareRepositoryError indicates an operation that requires a working tree was
// attempted on a bare repository
type BareRepositoryError struct {
	Op string
}

func (e *BareRepositoryError) Error() string {
	return fmt.Sprintf("%s cannot operate on a bare repository", e.Op)
}

// Is returns true if the target error is ErrInvalidState
func (e *BareRepositoryError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewBareRepositoryError creates a new BareRepositoryError
func NewBareRepositoryError(op string) *BareRepositoryError {
	return &BareRepositoryError{Op: op}
}

// SubmoduleNotFoundError indicates a submodule is not present in the
// configuration at the requested commit
type SubmoduleNotFoundError struct {
	Name   string
	Commit string
}

func (e *SubmoduleNotFoundError) Error() string {
	if e.Commit != "" {
		return fmt.Sprintf("submodule %s does not exist at commit %s", e.Name, e.Commit)
	}
	return fmt.Sprintf("submodule %s does not exist", e.Name)
}

// Is returns true if the target error is ErrNotFound
func (e *SubmoduleNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewSubmoduleNotFoundError creates a new SubmoduleNotFoundError
func NewSubmoduleNotFoundError(name, commit string) *SubmoduleNotFoundError {
	return &SubmoduleNotFoundError{Name: name, Commit: commit}
}

// BranchNotFoundError indicates no remote carries a ref for the given branch
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %s was not found in any remote", e.BranchName)
}

// Is returns true if the target error is ErrNotFound
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewBranchNotFoundError creates a new BranchNotFoundError
func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// BranchUnavailableError indicates the tracked branch does not exist at the
// remote a submodule is migrating to
type BranchUnavailableError struct {
	BranchName string
	URL        string
}

func (e *BranchUnavailableError) Error() string {
	return fmt.Sprintf("branch %s is not available at new remote %s", e.BranchName, e.URL)
}

// Is returns true if the target error is ErrNotFound
func (e *BranchUnavailableError) Is(target error) bool {
	return target == ErrNotFound
}

// NewBranchUnavailableError creates a new BranchUnavailableError
func NewBranchUnavailableError(branchName, url string) *BranchUnavailableError {
	return &BranchUnavailableError{BranchName: branchName, URL: url}
}

// AmbiguousRemoteError indicates the remote to retire during a URL migration
// could not be determined
type AmbiguousRemoteError struct {
	URL string
}

func (e *AmbiguousRemoteError) Error() string {
	return fmt.Sprintf("could not find original remote for url %s", e.URL)
}

// Is returns true if the target error is ErrConflict
func (e *AmbiguousRemoteError) Is(target error) bool {
	return target == ErrConflict
}

// NewAmbiguousRemoteError creates a new AmbiguousRemoteError
func NewAmbiguousRemoteError(url string) *AmbiguousRemoteError {
	return &AmbiguousRemoteError{URL: url}
}

// DirtyWorktreeError indicates a module has uncommitted or untracked changes
type DirtyWorktreeError struct {
	Path string
}

func (e *DirtyWorktreeError) Error() string {
	return fmt.Sprintf("module at %s has uncommitted changes", e.Path)
}

// Is returns true if the target error is ErrConflict
func (e *DirtyWorktreeError) Is(target error) bool {
	return target == ErrConflict
}

// NewDirtyWorktreeError creates a new DirtyWorktreeError
func NewDirtyWorktreeError(path string) *DirtyWorktreeError {
	return &DirtyWorktreeError{Path: path}
}

// UnpushedCommitsError indicates a module has local commits that no remote
// branch contains
type UnpushedCommitsError struct {
	Path   string
	Remote string
}

func (e *UnpushedCommitsError) Error() string {
	return fmt.Sprintf("module at %s has commits not contained in any branch of remote %s", e.Path, e.Remote)
}

// Is returns true if the target error is ErrConflict
func (e *UnpushedCommitsError) Is(target error) bool {
	return target == ErrConflict
}

// NewUnpushedCommitsError creates a new UnpushedCommitsError
func NewUnpushedCommitsError(path, remote string) *UnpushedCommitsError {
	return &UnpushedCommitsError{Path: path, Remote: remote}
}

// OccupiedPathError indicates a move destination is already taken by a file,
// a non-empty directory or an index entry
type OccupiedPathError struct {
	Path   string
	Reason string
}

func (e *OccupiedPathError) Error() string {
	return fmt.Sprintf("destination %s is occupied: %s", e.Path, e.Reason)
}

// Is returns true if the target error is ErrConflict
func (e *OccupiedPathError) Is(target error) bool {
	return target == ErrConflict
}

// NewOccupiedPathError creates a new OccupiedPathError
func NewOccupiedPathError(path, reason string) *OccupiedPathError {
	return &OccupiedPathError{Path: path, Reason: reason}
}
