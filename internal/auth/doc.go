// Package auth resolves callers into tenancy principals.
//
// It provides:
//   - Argon2id password hashing in PHC string format
//   - HS256 JWT access tokens that carry the caller's house and role
//
// Tokens are validated by signature only; no database lookup happens per
// request. A member's authorisation flag is embedded at login, so a change
// by the admin takes effect when the member next signs in.
package auth
