// Package notify surfaces classified errors to the user.
//
// [Notifier.Notify] renders a descriptor as a severity-ranked [Toast] and
// suppresses repeats of the same (kind, status, url) within the throttle
// window. Every call is logged whether or not a toast is shown.
//
// [Notifier.Dispatch] runs the kind-specific side effects (logout on
// AUTHENTICATION, connectivity on NETWORK). It ignores throttling and toast
// suppression entirely.
//
// # What this package must NOT do
//
//   - Render anything itself. Presentation goes through a [Presenter].
//   - Decide retries or end sessions directly; it only calls hooks.
package notify
