// Package authcore is the authentication core of the Studentopia app:
// account registration, login with lockout and TOTP, password reset and
// per-device session tracking, all persisted through an encrypted
// key-value vault.
//
// Engine methods are safe to call from multiple goroutines after
// construction through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config]
// and value types (LoginResult, Session, MetricsSnapshot). Flow
// orchestration, credential and token stores, attempt limiters and audit
// dispatch live under internal/ and are never exported. The vault, kv,
// mfa, session, password, jwt, moderation and notify packages are usable on
// their own.
//
// # What this package must NOT do
//
//   - Write a credential, token or MFA secret to the store unencrypted.
//   - Reveal whether an email is registered through login or password reset
//     results, errors or timing.
//   - Hold package-level mutable state; every collaborator is injected via
//     [Builder].
//   - Import any sub-package that re-imports authcore (no import cycles).
package authcore
