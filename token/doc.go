// Package token implements stateless, purpose-bound, expiring tokens keyed to
// a per-account security stamp.
//
// # Format
//
// A token is base64url(record || HMAC-SHA256(key, record)) where record is a
// versioned binary encoding of (account id, purpose, payload, stamp, expiry).
// No server-side token table exists: validity is recomputed at verification
// time from the account's current stamp, so rotating the stamp silently
// invalidates every outstanding token for that account.
//
// # Architecture boundaries
//
// This package owns minting and validation only. Stamp rotation, purpose
// selection, and validity windows are decided by the Engine.
//
// # What this package must NOT do
//
//   - Persist tokens or consult any store.
//   - Distinguish validation failures — every rejection is [ErrInvalid].
//   - Read wall-clock time outside the injected clock.
package token
