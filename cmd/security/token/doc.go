// Package token hashes one-time secrets (email verification tokens) for
// server-side storage and compares stored digests in constant time.
//
// Digests are 64-char hex. With LOCALLIBRARY_TOKEN_HMAC_KEY set they are
// HMAC-SHA256 under that key, otherwise plain SHA-256.
package token
