// Package identity implements library members: accounts, email verification
// tokens, groups and permissions.
//
// Store persists users. Accounts is the service used by the HTTP layer and
// the admin CLI: signup with an inactive account plus a verification token
// created in the same transaction, the verification handshake, credential
// checks and profile updates.
package identity
