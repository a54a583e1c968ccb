// Package retry re-executes failed operations under a bounded exponential
// backoff policy.
//
// The delay before retry n (0-indexed) is BaseDelay*Multiplier^n capped at
// MaxDelay. A failure is retried only while the retry count is below
// MaxRetries, the classifier marks it retryable, its status (when present)
// is in the retryable status set and its kind is in the retryable kind set.
//
// [Execute] and [Wrap] know nothing about the operation they wrap. The HTTP
// pipeline drives the same [Coordinator] step by step through
// [Coordinator.Decide] and [Coordinator.Wait] so both layers share one policy.
//
// # What this package must NOT do
//
//   - Retry concurrently. One attempt, including its wait, finishes before
//     the next starts.
//   - Replace the caller's error. Exhaustion returns the original failure.
package retry
