package submodule

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing/object"

	"submod.dev/submod/internal/git"
	"submod.dev/submod/internal/gitmodules"
)

// Snapshot is the name-keyed set of submodule records materialized from one
// (repository, commit) pair. Two snapshots of the same repository taken at
// different commits are the unit of comparison for reconciliation.
type Snapshot struct {
	repo    *git.Repository
	commit  *object.Commit
	records map[string]*Record
}

func emptySnapshot(repo *git.Repository, commit *object.Commit) *Snapshot {
	return &Snapshot{repo: repo, commit: commit, records: map[string]*Record{}}
}

// Load materializes the submodule set configured at the given commit. When
// the commit is HEAD of a non-bare repository the working tree configuration
// is used, so staged-but-uncommitted changes are visible. A repository with
// no submodule configuration yields an empty snapshot.
func Load(repo *git.Repository, commit *object.Commit) (*Snapshot, error) {
	cfg, err := gitmodules.LoadCommit(repo, commit)
	if err != nil {
		return nil, err
	}

	snap := emptySnapshot(repo, commit)
	for _, name := range cfg.Names() {
		path, err := cfg.Value(name, KeyPath)
		if err != nil {
			return nil, err
		}
		url, err := cfg.Value(name, KeyURL)
		if err != nil {
			return nil, err
		}
		branch := cfg.ValueDefault(name, KeyBranch, DefaultBranch)

		pinned, err := pinnedAt(repo, commit, path)
		if err != nil {
			return nil, err
		}

		snap.records[name] = newResolvedRecord(repo, name, commit, pinned, path, url, branch)
	}

	return snap, nil
}

// LoadHead materializes the submodule set of the repository's current HEAD
// and working configuration.
func LoadHead(repo *git.Repository) (*Snapshot, error) {
	head, err := repo.HeadCommit()
	if err != nil {
		return nil, err
	}
	return Load(repo, head)
}

// Commit returns the commit the snapshot was taken at.
func (s *Snapshot) Commit() *object.Commit {
	return s.commit
}

// Names returns the submodule names in the snapshot, sorted.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the record for name, or nil.
func (s *Snapshot) Get(name string) *Record {
	return s.records[name]
}

// Has reports whether name is present in the snapshot.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.records[name]
	return ok
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Removed returns the names present in prev but not in cur, sorted. The diff
// is an explicit keyed map diff: only the name participates in identity.
func Removed(prev, cur *Snapshot) []string {
	var names []string
	for name := range prev.records {
		if _, ok := cur.records[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Added returns the names present in cur but not in prev, sorted.
func Added(prev, cur *Snapshot) []string {
	return Removed(cur, prev)
}

// Common returns the names present in both snapshots, sorted.
func Common(prev, cur *Snapshot) []string {
	var names []string
	for name := range prev.records {
		if _, ok := cur.records[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
