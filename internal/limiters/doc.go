// Package limiters provides the failure-counting lockout limiters used by the
// login and password-reset flows.
//
// An [AttemptLimiter] keeps one [AttemptCounter] per identifier in the vault
// and updates it through vault.Mutate, so concurrent failures for the same
// identifier are never lost. Policies come from [AttemptConfig];
// [LoginAttempts] and [ResetAttempts] are the two stock policies.
//
// Limiters only count. Flow functions decide what a lock means for the caller.
// All methods are nil-safe: a nil limiter allows everything.
package limiters
