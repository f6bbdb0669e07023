// Package internal contains helper utilities that are intentionally private to
// clinicauth, including secure random token generation and token digest helpers.
//
// # Sub-packages
//
//   - stores: Redis-backed refresh-token and password-reset record stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public clinicauth API.
//   - Be imported by any package outside the clinicauth module.
package internal
