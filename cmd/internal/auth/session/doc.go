// Package session implements login sessions for the library.
//
// A login creates a server-side session row and a PASETO v4.public access
// token that names it. Tokens are verified locally and then checked against
// the row, so logout (revocation) takes effect immediately. The row also
// carries the per-session visit counter shown on the home page.
package session
