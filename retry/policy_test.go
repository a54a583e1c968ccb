package retry

import (
	"testing"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
)

func TestPolicyDelayIsExponentialAndCapped(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for n, w := range want {
		if got := p.Delay(n); got != w {
			t.Fatalf("Delay(%d) = %v, want %v", n, got, w)
		}
	}
	if got := p.Delay(5000); got != p.MaxDelay {
		t.Fatalf("huge exponent should cap at MaxDelay, got %v", got)
	}
}

func TestPolicyShouldRetryGates(t *testing.T) {
	p := DefaultPolicy()
	retryable := apierr.Descriptor{Kind: apierr.KindServer, StatusCode: 503, Retryable: true}

	if !p.ShouldRetry(0, retryable) {
		t.Fatal("expected 503 to be retryable on first failure")
	}
	if p.ShouldRetry(p.MaxRetries, retryable) {
		t.Fatal("expected no retry once MaxRetries is reached")
	}

	notFlagged := retryable
	notFlagged.Retryable = false
	if p.ShouldRetry(0, notFlagged) {
		t.Fatal("descriptor marked non-retryable must not retry")
	}

	oddStatus := retryable
	oddStatus.StatusCode = 507
	if p.ShouldRetry(0, oddStatus) {
		t.Fatal("status outside the retryable set must not retry")
	}

	network := apierr.Descriptor{Kind: apierr.KindNetwork, Retryable: true}
	if !p.ShouldRetry(0, network) {
		t.Fatal("network failures without status must retry")
	}

	p.RetryableKinds = []apierr.Kind{apierr.KindTimeout}
	if p.ShouldRetry(0, network) {
		t.Fatal("kind outside the retryable set must not retry")
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	mutations := map[string]func(*Policy){
		"negative retries": func(p *Policy) { p.MaxRetries = -1 },
		"multiplier":       func(p *Policy) { p.Multiplier = 0.5 },
		"zero cap":         func(p *Policy) { p.MaxDelay = 0 },
		"cap below base":   func(p *Policy) { p.MaxDelay = p.BaseDelay / 2 },
		"unknown kind":     func(p *Policy) { p.RetryableKinds = []apierr.Kind{"BOGUS"} },
		"bad status":       func(p *Policy) { p.RetryableStatusCodes = []int{42} },
	}
	for name, mutate := range mutations {
		p := DefaultPolicy()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
