// Package overlay implements the speculative editing layer that sits between
// a read-only query snapshot and the database adapter that eventually
// applies the edits.
//
// The read path is pure: Merge combines a snapshot with pending insertions
// into display rows, and ResolveExisting/ResolveInsertion decide what each
// visible cell shows. The write path goes through a Store, an immutable
// value holding pending cell changes, deletions and insertions; every
// mutation returns a new Store. PlanCommit turns a Store (optionally scoped
// by a Selection) into remote calls and Execute issues them concurrently.
//
// Failure policy: a batch either succeeds as a whole, after which exactly
// the executed entries are reconciled out of the Store, or it fails, in
// which case the Store is left untouched. Calls that reached the backend
// before a sibling failed are not compensated.
package overlay
