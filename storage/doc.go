// Package storage persists credentials, the user snapshot and the RBAC
// cache under prefixed keys on a pluggable key/value [Backend].
//
// Every value is JSON-serialized. Reads never fail: backend errors and
// corrupt values are logged and reported as absent, so callers always get
// a defined value. Writes report failure, and a token pair whose refresh
// half could not be written counts as a failed write.
//
// Backends live in subpackages: memory (tests and in-process tabs), file
// (the CLI's ~/.qms/credentials.json) and redisstore (shared across
// processes).
//
// # What this package must NOT do
//
//   - Lock across processes. Concurrent writers race last-writer-wins and
//     reconcile through the session broadcast.
//   - Interpret token contents.
package storage
