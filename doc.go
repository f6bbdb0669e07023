// Package clinicauth provides the credential and token lifecycle engine for a
// multi-tenant clinic platform: account registration, password login, JWT access
// tokens, rotating single-use refresh tokens, and hashed password-reset tokens.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// clinicauth is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (AuthResult, Identity, RefreshTokenRecord, etc.). Token record encoding and the
// Redis store plumbing live under internal/ and are never exported. Relational backends
// live under postgres/ and plug in through the same store interfaces.
//
// # What this package must NOT do
//
//   - Store or log a refresh or reset token in plaintext. Stores see only SHA-256 digests.
//   - Distinguish "unknown email" from "wrong password" in any returned error.
//   - Accept a refresh token for access-token validation or vice versa.
//
// # Performance contract
//
// ValidateAccess is the hot path. It is pure JWT verification and must complete without
// any store round-trip. Login, Refresh, and the password-reset operations are allowed
// store round-trips; Refresh revocation is a single conditional write so that two racing
// rotations of the same token observe exactly one winner.
package clinicauth
