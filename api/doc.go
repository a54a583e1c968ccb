// Package api is the client side of the QMS backend auth contract.
//
// [Backend] is what the session client depends on; [HTTPBackend] implements
// it over a [transport.Pipeline]. Auth endpoints run silent and opt out of
// the pipeline's 401 teardown so a rejected password or refresh token is
// reported to the caller instead of ending the session twice.
package api
