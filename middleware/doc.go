// Package middleware exposes HTTP route guards that gate handlers on the
// session of a qmsauth.Client.
//
// # Guards
//
//   - [Guard] runs an arbitrary [Rule] against the session snapshot.
//   - [RequireAuthenticated] only lets signed-in sessions through.
//   - [RequirePermission] and [RequireAnyPermission] check RBAC codes.
//   - [RequireRole] checks role membership.
//
// Each guard reads one snapshot, decides, and injects that same snapshot into
// the request context with qmsauth.WithSession.
//
// # What this package must NOT do
//
//   - Refresh tokens or load RBAC data (the client owns that).
//   - Replace backend authorization. Guards hide routes; the backend enforces.
package middleware
