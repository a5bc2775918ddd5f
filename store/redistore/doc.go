// Package redistore provides a Redis-backed implementation of
// [credcore.AccountStore].
//
// # Design
//
// Each account is a versioned binary record under one key, plus a
// normalized-email index key holding the owning account ID. Create, Update,
// and Delete run WATCH/MULTI optimistic transactions with bounded retry on
// contention, so the index and the record always move together. Update
// compares the caller's record version against the stored one before
// writing.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control only. It does not
// hash passwords, mint tokens, or make policy decisions; those belong to the
// engine in the credcore root package.
//
// # What this package must NOT do
//
//   - Leak go-redis errors: every backend failure is wrapped in
//     [credcore.ErrStoreUnavailable].
//   - Store plaintext credentials.
package redistore
