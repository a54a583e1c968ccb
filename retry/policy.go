package retry

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
)

// Policy is the retry configuration shared by every caller.
type Policy struct {
	MaxRetries           int
	BaseDelay            time.Duration
	Multiplier           float64
	MaxDelay             time.Duration
	RetryableStatusCodes []int
	RetryableKinds       []apierr.Kind
}

// DefaultPolicy returns 3 retries at 1s, 2s, 4s with a 10s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:           3,
		BaseDelay:            time.Second,
		Multiplier:           2,
		MaxDelay:             10 * time.Second,
		RetryableStatusCodes: slices.Clone(apierr.DefaultRetryableStatusCodes),
		RetryableKinds:       slices.Clone(apierr.DefaultRetryableKinds),
	}
}

// Clone returns a deep copy of p.
func (p Policy) Clone() Policy {
	p.RetryableStatusCodes = slices.Clone(p.RetryableStatusCodes)
	p.RetryableKinds = slices.Clone(p.RetryableKinds)
	return p
}

// Validate checks the policy for values the coordinator cannot honor.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return errors.New("retry MaxRetries must be >= 0")
	}
	if p.BaseDelay < 0 {
		return errors.New("retry BaseDelay must be >= 0")
	}
	if p.Multiplier < 1 {
		return errors.New("retry Multiplier must be >= 1")
	}
	if p.MaxDelay <= 0 {
		return errors.New("retry MaxDelay must be > 0")
	}
	if p.MaxDelay < p.BaseDelay {
		return errors.New("retry MaxDelay must be >= BaseDelay")
	}
	for _, k := range p.RetryableKinds {
		if !k.Valid() {
			return errors.New("retry RetryableKinds contains an unknown kind")
		}
	}
	for _, code := range p.RetryableStatusCodes {
		if code < 100 || code > 599 {
			return errors.New("retry RetryableStatusCodes contains an invalid status")
		}
	}
	return nil
}

// Gate builds the classifier gate matching this policy.
func (p Policy) Gate() apierr.Gate {
	return apierr.NewGate(p.RetryableKinds, p.RetryableStatusCodes)
}

// ShouldRetry reports whether a failure described by d may be retried after
// retryCount retries have already run.
func (p Policy) ShouldRetry(retryCount int, d apierr.Descriptor) bool {
	if retryCount >= p.MaxRetries || !d.Retryable {
		return false
	}
	if d.StatusCode > 0 && !slices.Contains(p.RetryableStatusCodes, d.StatusCode) {
		return false
	}
	return slices.Contains(p.RetryableKinds, d.Kind)
}

// Delay returns the wait before retry n (0-indexed).
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	raw := float64(p.BaseDelay) * math.Pow(mult, float64(n))
	if p.MaxDelay > 0 && (raw >= float64(p.MaxDelay) || math.IsInf(raw, 0) || math.IsNaN(raw)) {
		return p.MaxDelay
	}
	return time.Duration(raw)
}
