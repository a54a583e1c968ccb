// Package permission holds the RBAC sets the session exposes and the
// transform from the backend's RBAC payload into them.
//
// # Shapes
//
// The backend reports permissions as codes such as "audits.view" or
// "audits:view", or as objects ({"resource", "action"} or {"codename"}).
// Roles arrive as strings or {"code"|"name"} objects. [FromPayload] accepts
// every variant and produces a [Grants] value; [Grants.ToCache] and
// [FromCache] convert to and from the persisted [model.RBACCache] blob.
//
// # What this package must NOT do
//
//   - Perform I/O or call the backend.
//   - Import qmsauth, api, or transport.
package permission
