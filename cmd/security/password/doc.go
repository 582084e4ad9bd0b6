// Package password hashes member passwords with Argon2id and enforces the
// signup password rules.
//
// Hashes use the PHC string form $argon2id$v=19$m=..,t=..,p=..$salt$key.
// Stored hashes are untrusted input: Verify parses them strictly and refuses
// parameters far above the configured cost.
//
// The rules mirror the usual web-framework validators: minimum length, not
// entirely numeric, not a common password, not too close to the username or
// email.
package password
