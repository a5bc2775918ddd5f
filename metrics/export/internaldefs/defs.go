package internaldefs

import (
	credcore "github.com/hollis-labs/credcore"
)

// CounterDef defines a public type used by credcore APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   credcore.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by credcore APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   credcore.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the account engine.
var CounterDefs = []CounterDef{
	{ID: credcore.MetricAccountCreated, Name: "credcore_account_created_total", Help: "Successful account creations."},
	{ID: credcore.MetricAccountDuplicate, Name: "credcore_account_duplicate_total", Help: "Account creations rejected as duplicate email."},
	{ID: credcore.MetricLoginSuccess, Name: "credcore_login_success_total", Help: "Successful credential validations."},
	{ID: credcore.MetricLoginFailure, Name: "credcore_login_failure_total", Help: "Failed credential validations."},
	{ID: credcore.MetricPasswordRehashed, Name: "credcore_password_rehashed_total", Help: "Password hashes upgraded to current parameters on login."},
	{ID: credcore.MetricTokenIssued, Name: "credcore_token_issued_total", Help: "Lifecycle tokens issued."},
	{ID: credcore.MetricTokenRejected, Name: "credcore_token_rejected_total", Help: "Lifecycle tokens rejected during validation."},
	{ID: credcore.MetricEmailConfirmed, Name: "credcore_email_confirmed_total", Help: "Email addresses confirmed."},
	{ID: credcore.MetricEmailChangeRequested, Name: "credcore_email_change_requested_total", Help: "Email change requests issued."},
	{ID: credcore.MetricEmailChangeApplied, Name: "credcore_email_change_applied_total", Help: "Email changes applied."},
	{ID: credcore.MetricPasswordResetSuccess, Name: "credcore_password_reset_success_total", Help: "Successful password resets."},
	{ID: credcore.MetricPasswordResetFailure, Name: "credcore_password_reset_failure_total", Help: "Failed password resets."},
	{ID: credcore.MetricPhoneUpdated, Name: "credcore_phone_updated_total", Help: "Phone number updates."},
	{ID: credcore.MetricAccountDeleted, Name: "credcore_account_deleted_total", Help: "Account delete operations."},
	{ID: credcore.MetricStampRotated, Name: "credcore_stamp_rotated_total", Help: "Security stamp rotations."},
	{ID: credcore.MetricConflictRetry, Name: "credcore_conflict_retry_total", Help: "Optimistic-concurrency conflicts retried."},
}

// HistogramDefs is an exported constant or variable used by the account engine.
var HistogramDefs = []HistogramDef{
	{ID: credcore.MetricLoginLatency, Name: "credcore_login_latency_seconds", Help: "Credential validation latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the account engine.
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

// HistogramBoundSuffix is an exported constant or variable used by the account engine.
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
