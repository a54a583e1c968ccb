// Package flows contains pure-function orchestrators for every session
// operation.
//
// Each flow function (RunInitialize, RunLogin, RunRefresh, RunLogout,
// RunLoadRBAC) accepts a typed dependency struct and returns a result value.
// Flows never touch session state; the client dispatches state transitions
// from the results. This keeps every branch testable with plain function
// fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the backend, the credential store and
// the RBAC transform. They do NOT own any of these resources; ownership
// stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import qmsauth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
