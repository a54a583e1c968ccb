// Package transport is the HTTP interceptor pipeline every backend call
// goes through.
//
// For each exchange [Pipeline.Do] attaches the bearer token, stamps local
// request metadata (id, start, retry count) into the request context,
// times the exchange and, on failure, classifies it, records it in the
// diagnostics log, fires kind side effects, retries when the policy allows,
// tears the session down on 401 and notifies the user unless the request is
// silent. The caller always receives the original failure.
//
// Per-request behavior is selected with context helpers: [WithSilent],
// [WithoutAuth], [WithoutRetry] and [WithoutAuthTeardown].
//
// # What this package must NOT do
//
//   - Send request metadata on the wire.
//   - Transform failures. Callers see *apierr.HTTPError or the transport error.
package transport
