// Package auth hashes and verifies the control API operator password.
//
// The configured security.auth.password may be plaintext or an Argon2id
// PHC string produced by `ledtube hash-password`. Matches accepts either.
package auth
