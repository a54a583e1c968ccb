package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/benbjohnson/clock"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

func failingOp(failures int, status int) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		if calls <= failures {
			return "", &apierr.HTTPError{Method: "GET", URL: "/api/indicators/", StatusCode: status}
		}
		return "ok", nil
	}, &calls
}

func TestExecuteRetriesServiceUnavailableThenSucceeds(t *testing.T) {
	sleeper := &recordingSleeper{}
	co := NewCoordinator(DefaultPolicy(), WithSleeper(sleeper))

	op, calls := failingOp(3, 503)
	got, err := Execute(context.Background(), co, op)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected result %q", got)
	}
	if *calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", *calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	delays := sleeper.Delays()
	if len(delays) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestExecuteAttemptCountIsBoundedByMaxRetries(t *testing.T) {
	policy := DefaultPolicy()
	policy.BaseDelay = 10 * time.Millisecond

	for failures := 0; failures <= 6; failures++ {
		sleeper := &recordingSleeper{}
		co := NewCoordinator(policy, WithSleeper(sleeper))
		op, calls := failingOp(failures, 500)

		_, err := Execute(context.Background(), co, op)

		wantAttempts := min(failures+1, policy.MaxRetries+1)
		if *calls != wantAttempts {
			t.Fatalf("failures=%d: attempts = %d, want %d", failures, *calls, wantAttempts)
		}
		if failures > policy.MaxRetries && err == nil {
			t.Fatalf("failures=%d: expected exhaustion error", failures)
		}
		for n, d := range sleeper.Delays() {
			if d != policy.Delay(n) {
				t.Fatalf("failures=%d: delay %d = %v, want %v", failures, n, d, policy.Delay(n))
			}
		}
	}
}

func TestExecuteReturnsOriginalErrorOnExhaustion(t *testing.T) {
	co := NewCoordinator(DefaultPolicy(), WithSleeper(&recordingSleeper{}))
	original := &apierr.HTTPError{StatusCode: 502}

	_, err := Execute(context.Background(), co, func(context.Context) (int, error) {
		return 0, original
	})
	if err != original {
		t.Fatalf("expected original error to propagate unchanged, got %v", err)
	}
}

func TestExecuteDoesNotRetryValidationFailures(t *testing.T) {
	sleeper := &recordingSleeper{}
	co := NewCoordinator(DefaultPolicy(), WithSleeper(sleeper))
	op, calls := failingOp(5, 400)

	if _, err := Execute(context.Background(), co, op); err == nil {
		t.Fatal("expected failure")
	}
	if *calls != 1 {
		t.Fatalf("expected a single attempt, got %d", *calls)
	}
	if len(sleeper.Delays()) != 0 {
		t.Fatalf("expected no waits, got %v", sleeper.Delays())
	}
}

func TestExecuteRetriesTransportFailures(t *testing.T) {
	co := NewCoordinator(DefaultPolicy(), WithSleeper(&recordingSleeper{}))
	calls := 0
	err := Do(context.Background(), co, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp 10.0.0.1:443: connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsWhenContextEndsDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := SleeperFunc(func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	co := NewCoordinator(DefaultPolicy(), WithSleeper(sleeper))
	original := &apierr.HTTPError{StatusCode: 503}

	_, err := Execute(ctx, co, func(context.Context) (int, error) { return 0, original })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var httpErr *apierr.HTTPError
	if !errors.As(err, &httpErr) || httpErr != original {
		t.Fatalf("expected original failure to stay reachable, got %v", err)
	}
}

func TestWrapDecoratesOperation(t *testing.T) {
	var attempts []Attempt
	co := NewCoordinator(DefaultPolicy(),
		WithSleeper(&recordingSleeper{}),
		WithOnRetry(func(a Attempt) { attempts = append(attempts, a) }),
	)
	op, _ := failingOp(2, 429)

	wrapped := Wrap(op, co)
	got, err := wrapped(context.Background())
	if err != nil || got != "ok" {
		t.Fatalf("wrapped op = (%q, %v)", got, err)
	}
	if len(attempts) != 2 || attempts[0].Number != 1 || attempts[1].Number != 2 {
		t.Fatalf("unexpected retry attempts: %+v", attempts)
	}
	if attempts[0].Descriptor.Kind != apierr.KindClient {
		t.Fatalf("expected CLIENT kind for 429, got %s", attempts[0].Descriptor.Kind)
	}
}

func TestClockSleeperWaitsForMockClock(t *testing.T) {
	mock := clock.NewMock()
	s := ClockSleeper{Clock: mock}

	done := make(chan error, 1)
	go func() {
		done <- s.Sleep(context.Background(), 2*time.Second)
	}()

	deadline := time.After(2 * time.Second)
	for {
		mock.Add(time.Second)
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Sleep returned %v", err)
			}
			return
		case <-deadline:
			t.Fatal("sleeper never woke up")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
