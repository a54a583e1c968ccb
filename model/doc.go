// Package model holds the shared value types exchanged between the session
// client, the credential store and the backend contract: the user snapshot,
// the access/refresh token pair and the cached RBAC blob.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import any other qmsauth package.
package model
