package internaldefs

import (
	"clinicauth"
)

// CounterDef defines a public type used by clinicauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   clinicauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by clinicauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   clinicauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: clinicauth.MetricLoginSuccess, Name: "clinicauth_login_success_total", Help: "Successful login attempts."},
	{ID: clinicauth.MetricLoginFailure, Name: "clinicauth_login_failure_total", Help: "Failed login attempts."},
	{ID: clinicauth.MetricRefreshSuccess, Name: "clinicauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: clinicauth.MetricRefreshFailure, Name: "clinicauth_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: clinicauth.MetricRefreshReuseDetected, Name: "clinicauth_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: clinicauth.MetricLogout, Name: "clinicauth_logout_total", Help: "Single-session logout operations."},
	{ID: clinicauth.MetricMassRevocation, Name: "clinicauth_mass_revocation_total", Help: "Mass revocations of a user's refresh tokens."},
	{ID: clinicauth.MetricAccountCreationSuccess, Name: "clinicauth_account_creation_success_total", Help: "Successful account creations."},
	{ID: clinicauth.MetricAccountCreationDuplicate, Name: "clinicauth_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: clinicauth.MetricPasswordResetRequest, Name: "clinicauth_password_reset_request_total", Help: "Password reset requests."},
	{ID: clinicauth.MetricPasswordResetConfirmSuccess, Name: "clinicauth_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: clinicauth.MetricPasswordResetConfirmFailure, Name: "clinicauth_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: clinicauth.MetricValidateLatency, Name: "clinicauth_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
