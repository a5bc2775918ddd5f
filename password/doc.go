// Package password implements password hashing and verification with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Parameters travel inside the encoded hash, so verification stays compatible
// after the hasher's configuration is strengthened. [Argon2.Verify] reports
// [MatchNeedsRehash] in that case so the caller can re-hash on the next
// successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// character classes) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other credcore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
