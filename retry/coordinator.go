package retry

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/go-logr/logr"
)

// Attempt describes a retry that is about to run.
type Attempt struct {
	// Number is the 1-based retry number.
	Number     int
	Delay      time.Duration
	Descriptor apierr.Descriptor
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClassifier sets the classifier used to reclassify failures.
func WithClassifier(c *apierr.Classifier) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.classifier = c
		}
	}
}

// WithSleeper replaces the default wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(co *Coordinator) {
		if s != nil {
			co.sleeper = s
		}
	}
}

// WithLogger sets the logger that receives the pre-retry warning.
func WithLogger(l logr.Logger) Option {
	return func(co *Coordinator) {
		if l.GetSink() != nil {
			co.log = l
		}
	}
}

// WithOnRetry registers a hook invoked before each wait.
func WithOnRetry(fn func(Attempt)) Option {
	return func(co *Coordinator) {
		co.onRetry = fn
	}
}

// Coordinator applies a Policy. It holds no per-operation state and is safe
// for concurrent use.
type Coordinator struct {
	policy     Policy
	classifier *apierr.Classifier
	sleeper    Sleeper
	log        logr.Logger
	onRetry    func(Attempt)
}

// NewCoordinator returns a Coordinator for policy.
func NewCoordinator(policy Policy, opts ...Option) *Coordinator {
	policy = policy.Clone()
	c := &Coordinator{
		policy:  policy,
		sleeper: ClockSleeper{},
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.classifier == nil {
		c.classifier = apierr.NewClassifier(policy.Gate())
	}
	return c
}

// Policy returns a copy of the policy in use.
func (c *Coordinator) Policy() Policy {
	return c.policy.Clone()
}

// Classifier returns the classifier used to reclassify failures.
func (c *Coordinator) Classifier() *apierr.Classifier {
	return c.classifier
}

// Decide returns the delay before the next retry and whether one is allowed.
func (c *Coordinator) Decide(retryCount int, d apierr.Descriptor) (time.Duration, bool) {
	if !c.policy.ShouldRetry(retryCount, d) {
		return 0, false
	}
	return c.policy.Delay(retryCount), true
}

// Wait logs the upcoming retry and sleeps for delay.
func (c *Coordinator) Wait(ctx context.Context, retryCount int, delay time.Duration, d apierr.Descriptor) error {
	attempt := Attempt{Number: retryCount + 1, Delay: delay, Descriptor: d}
	c.log.Info("retrying failed request",
		"attempt", attempt.Number,
		"max_retries", c.policy.MaxRetries,
		"url", d.URL,
		"method", d.Method,
		"kind", d.Kind,
		"status", d.StatusCode,
		"delay", delay,
	)
	if c.onRetry != nil {
		c.onRetry(attempt)
	}
	return c.sleeper.Sleep(ctx, delay)
}

// Execute runs op until it succeeds, the policy refuses another retry or ctx
// ends. The error returned on exhaustion is op's last error, unchanged.
func Execute[T any](ctx context.Context, c *Coordinator, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	for retryCount := 0; ; retryCount++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		d := c.classifier.ClassifyError(err, "", "")
		delay, ok := c.Decide(retryCount, d)
		if !ok {
			return zero, err
		}
		if waitErr := c.Wait(ctx, retryCount, delay, d); waitErr != nil {
			return zero, errors.Join(err, waitErr)
		}
	}
}

// Wrap returns op decorated with retries under c.
func Wrap[T any](op func(context.Context) (T, error), c *Coordinator) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Execute(ctx, c, op)
	}
}

// Do is Execute for operations without a result.
func Do(ctx context.Context, c *Coordinator, op func(context.Context) error) error {
	_, err := Execute(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
