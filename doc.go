// Package authguard provides request authentication and authorization for
// multi-tenant service backends: bearer token verification, revocation
// enforcement, a service-wide authentication override, and role gated routes.
//
// Guard pipeline:
//   - Guard runs an ordered short-circuit pipeline per request: global
//     override, header extraction, revocation, signature/expiry verification,
//     claims shape, directory lookup, account status, and identity freshness.
//     Strict mode rejects with a mapped status; optional mode degrades to an
//     anonymous request and never errors.
//   - RequireUser and RequireRole are post-conditions on the Principal the
//     guard installs; they never perform their own token verification.
//
// Revocation:
//   - RevocationStore tracks revoked tokens keyed by a digest of the raw
//     compact token, so revocation is enforced before any claim is trusted.
//     Entries expire with the token they block. The Redis-backed store makes
//     revocation visible to every instance in a multi-node deployment.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing bypassed
//     requests, denials, issuance, revocation, and login events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package authguard
