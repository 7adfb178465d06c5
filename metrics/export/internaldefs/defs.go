package internaldefs

import (
	authcore "github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for export.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// Namespace prefixes every exported metric name.
const Namespace = "studentopia_auth"

// AuditDroppedName is the counter reporting audit events lost to backpressure.
const AuditDroppedName = Namespace + "_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: authcore.MetricRegisterSuccess, Name: counterName("register_success"), Help: "Accounts registered."},
	{ID: authcore.MetricRegisterRejected, Name: counterName("register_rejected"), Help: "Registrations rejected by input validation."},
	{ID: authcore.MetricRegisterDuplicate, Name: counterName("register_duplicate"), Help: "Registrations rejected because the email exists."},
	{ID: authcore.MetricLoginSuccess, Name: counterName("login_success"), Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: counterName("login_failure"), Help: "Failed login attempts."},
	{ID: authcore.MetricLoginLocked, Name: counterName("login_locked"), Help: "Login attempts refused by the lockout."},
	{ID: authcore.MetricMFARequired, Name: counterName("mfa_required"), Help: "Logins paused for a second factor."},
	{ID: authcore.MetricMFASuccess, Name: counterName("mfa_success"), Help: "Accepted MFA codes."},
	{ID: authcore.MetricMFAFailure, Name: counterName("mfa_failure"), Help: "Rejected MFA codes."},
	{ID: authcore.MetricBackupCodeUsed, Name: counterName("backup_code_used"), Help: "Backup codes consumed."},
	{ID: authcore.MetricBackupCodesRegenerated, Name: counterName("backup_codes_regenerated"), Help: "Backup code set regenerations."},
	{ID: authcore.MetricMFAEnabled, Name: counterName("mfa_enabled"), Help: "MFA enrollments."},
	{ID: authcore.MetricMFADisabled, Name: counterName("mfa_disabled"), Help: "MFA removals."},
	{ID: authcore.MetricPasswordHashMigrated, Name: counterName("password_hash_migrated"), Help: "Stored hashes upgraded on login."},
	{ID: authcore.MetricPasswordResetRequest, Name: counterName("password_reset_request"), Help: "Password reset requests."},
	{ID: authcore.MetricPasswordResetLocked, Name: counterName("password_reset_locked"), Help: "Reset requests refused by the lockout."},
	{ID: authcore.MetricPasswordResetSuccess, Name: counterName("password_reset_success"), Help: "Completed password resets."},
	{ID: authcore.MetricPasswordResetFailure, Name: counterName("password_reset_failure"), Help: "Failed password reset confirmations."},
	{ID: authcore.MetricSessionCreated, Name: counterName("session_created"), Help: "Sessions created."},
	{ID: authcore.MetricSessionRevoked, Name: counterName("session_revoked"), Help: "Sessions revoked."},
	{ID: authcore.MetricSessionExpired, Name: counterName("session_expired"), Help: "Sessions found past their maximum age."},
	{ID: authcore.MetricSessionTokenIssued, Name: counterName("session_token_issued"), Help: "Session tokens issued."},
	{ID: authcore.MetricSessionTokenRejected, Name: counterName("session_token_rejected"), Help: "Session tokens rejected."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricLoginLatency, Name: Namespace + "_login_latency_seconds", Help: "Login latency including equalization delay."},
}

// HistogramBounds mirrors authcore.HistogramBounds in seconds. The final
// bucket is +Inf.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"0.75",
	"1",
	"2",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"0_75",
	"1",
	"2",
	"inf",
}

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(authcore.HistogramBounds))
	for i, ms := range authcore.HistogramBounds {
		out[i] = float64(ms) / 1000
	}
	return out
}

// NormalizeBuckets copies raw into a fixed eight bucket array, padding with
// zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

func counterName(base string) string {
	return Namespace + "_" + base + "_total"
}
