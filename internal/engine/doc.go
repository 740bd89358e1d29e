// Package engine reconciles the declarative submodule set of a repository
// against its on-disk checkouts.
//
// It is the core of submod, responsible for:
//   - Diffing two snapshots of the submodule set to detect additions,
//     removals, path moves, URL changes and branch changes
//   - Driving each affected checkout through a safe state transition
//     (clone, fetch, checkout, reset, remote rewrite)
//   - Recursing depth-first into nested submodules
//
// Execution is single-threaded and best-effort: there are no transactional
// guarantees from the underlying store, and a failure partway through leaves
// already-processed submodules fully applied. Re-running the coordinator is
// idempotent over the unaffected portion.
package engine
