// Package jwt manages access- and refresh-token issuance and verification using two
// distinct HS256 secrets and strict validation semantics suitable for low-latency
// authentication paths.
package jwt
