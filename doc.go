// Package credcore provides an account and credential management engine with
// argon2id password hashing, security-stamp token invalidation, and stateless
// purpose-bound MAC tokens for email confirmation, password reset, and email
// change flows.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// credcore is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (Account, AccountInfo, MetricsSnapshot, etc.). Password encoding lives under password/,
// the token codec under token/, and the [AccountStore] implementations under store/.
// Identifier and email normalization helpers live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Expose store backends, hash parameters, or token wire encoding in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any store sub-package (stores import credcore, never the reverse).
//
// # Performance contract
//
// ValidateCredentials is the hot path and is dominated by the argon2id key
// derivation; it performs one store lookup per call and runs a decoy hash for
// unknown emails so timing does not reveal account existence. Token issue and
// validation are store-lookup plus HMAC only.
package credcore
