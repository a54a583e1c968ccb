// Package qmsauth is the client-side session layer of the QMS front end.
//
// A [Client] owns one authenticated session against the QMS backend: it
// restores stored credentials at startup, logs users in and out, keeps the
// access token fresh, loads role and permission grants, and tears the
// session down when the backend or another client reports that it ended.
// Every HTTP call made through [Client.HTTP] goes through the same
// classification, retry and notification pipeline.
//
// Build a client with the fluent builder:
//
//	client, err := qmsauth.New().
//		WithConfig(cfg).
//		WithStorage(memory.New()).
//		WithLogger(logger).
//		Build()
//
// # Architecture boundaries
//
// The session state is a single immutable [Session] snapshot replaced
// atomically by an internal reducer. Readers never lock; writers serialize
// through the reducer, which rejects any transition that would leave an
// authenticated session without a user or tokens.
//
// Sub-packages hold the moving parts:
//
//   - apierr classifies failed exchanges.
//   - retry applies the bounded backoff policy.
//   - transport is the HTTP pipeline.
//   - storage persists credentials behind a pluggable backend.
//   - broadcast carries cross-client logout events.
//   - notify throttles and presents user-facing messages.
//   - permission holds the RBAC sets and payload transform.
//
// # What this package must NOT do
//
//   - Decide authorization on the server's behalf. Permission predicates
//     only drive presentation; the backend enforces access.
//   - Log token values.
//   - Block readers of the session snapshot.
package qmsauth
