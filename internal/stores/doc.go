// Package stores provides the Redis-backed record stores for token
// lifecycle state: issued refresh tokens and password-reset challenges.
//
// # Design
//
// Each store persists a versioned, binary-encoded record in Redis with a TTL
// matched to the token's expiry. Mutations that must be observed exactly once
// (revoking a refresh token, consuming a reset challenge) run as Lua scripts
// so two racing callers see one winner. Stores hold only SHA-256 digests of
// tokens, never plaintext.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for token records.
// It does NOT generate tokens, verify signatures, or make authentication
// decisions; those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import clinicauth or any sibling internal package.
//   - Log or expose plaintext tokens.
//   - Decide whether a revoked or expired record is an error; it reports state.
package stores
