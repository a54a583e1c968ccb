// Package apierr classifies failed HTTP exchanges into typed descriptors.
//
// A failed exchange is either a transport failure (no response) or a
// response with a status of 400 or above. [Classifier.Classify] maps it to a
// [Descriptor] carrying kind, severity, a technical message, a Spanish
// user-facing message and a retryability verdict gated by the configured
// retryable kinds and status codes.
//
// Error bodies returned by the backend come in several shapes. [ParseBody]
// turns them into a [Body] tagged union so callers never inspect fields
// speculatively.
//
// # What this package must NOT do
//
//   - Panic on any input. Classification is total.
//   - Perform I/O or retain request bodies beyond the call.
package apierr
