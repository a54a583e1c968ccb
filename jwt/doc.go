// Package jwt reads and mints the Django SimpleJWT-style tokens exchanged
// with the QMS backend.
//
// [Inspect] decodes an access token without verifying its signature; the
// client uses it only to schedule refreshes, never to make trust decisions.
// [Manager] signs and verifies token pairs and backs the fake backend used
// in tests and local development.
package jwt
