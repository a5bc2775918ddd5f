// Package memstore provides an in-memory implementation of
// [credcore.AccountStore] for tests, examples, and single-process use.
//
// # Design
//
// A single mutex guards two maps: accounts by ID and a normalized-email
// index. Every read hands out a clone, so callers can never mutate stored
// records through an alias. Update enforces the optimistic-concurrency
// contract by comparing versions under the lock.
//
// # What this package must NOT do
//
//   - Persist anything; restarts lose all accounts.
//   - Return interior pointers into its maps.
package memstore
