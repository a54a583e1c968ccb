package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultThrottleWindow   = 5 * time.Second
	DefaultThrottleCapacity = 256
)

// Config tunes the notifier.
type Config struct {
	ThrottleWindow time.Duration
	// ThrottleCapacity bounds how many distinct keys are remembered.
	ThrottleCapacity int
}

// Options are per-call switches. The zero value suppresses the toast, so
// start from DefaultOptions.
type Options struct {
	ShowToast bool
	Throttle  bool
}

// DefaultOptions shows a throttled toast.
func DefaultOptions() Options {
	return Options{ShowToast: true, Throttle: true}
}

// Hooks receive side effects and presentation events.
type Hooks struct {
	OnAuthentication func(ctx context.Context, d apierr.Descriptor)
	OnConnectivity   func(ctx context.Context, d apierr.Descriptor)
	OnPresented      func(toast Toast)
	OnThrottled      func(d apierr.Descriptor)
}

// Outcome reports what Notify did.
type Outcome struct {
	Presented bool
	Throttled bool
	Toast     Toast
}

type throttleKey struct {
	kind   apierr.Kind
	status int
	url    string
}

// Notifier is safe for concurrent use.
type Notifier struct {
	cfg       Config
	presenter Presenter
	clock     clock.Clock
	log       logr.Logger
	hooks     Hooks

	mu     sync.Mutex
	recent *lru.Cache[throttleKey, time.Time]
}

// New returns a Notifier presenting through presenter. A nil presenter
// drops toasts after logging them.
func New(cfg Config, presenter Presenter, clk clock.Clock, logger logr.Logger) (*Notifier, error) {
	if cfg.ThrottleWindow < 0 {
		return nil, errors.New("notify ThrottleWindow must be >= 0")
	}
	if cfg.ThrottleWindow == 0 {
		cfg.ThrottleWindow = DefaultThrottleWindow
	}
	if cfg.ThrottleCapacity <= 0 {
		cfg.ThrottleCapacity = DefaultThrottleCapacity
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	if presenter == nil {
		presenter = PresenterFunc(func(context.Context, Toast) {})
	}
	recent, err := lru.New[throttleKey, time.Time](cfg.ThrottleCapacity)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		cfg:       cfg,
		presenter: presenter,
		clock:     clk,
		log:       logger,
		recent:    recent,
	}, nil
}

// SetHooks replaces the hooks. It must be called before the notifier is shared.
func (n *Notifier) SetHooks(h Hooks) {
	n.hooks = h
}

// Notify logs d and, unless suppressed, presents it with DefaultOptions.
func (n *Notifier) Notify(ctx context.Context, d apierr.Descriptor) Outcome {
	return n.NotifyWith(ctx, d, DefaultOptions())
}

// NotifyWith logs d and presents it according to opts.
func (n *Notifier) NotifyWith(ctx context.Context, d apierr.Descriptor, opts Options) Outcome {
	n.logDescriptor(d)
	if !opts.ShowToast {
		return Outcome{}
	}

	toast := ToastFor(d)
	if opts.Throttle && n.throttled(d) {
		n.log.V(1).Info("notification throttled", "kind", d.Kind, "status", d.StatusCode, "url", d.URL)
		if n.hooks.OnThrottled != nil {
			n.hooks.OnThrottled(d)
		}
		return Outcome{Throttled: true, Toast: toast}
	}

	n.presenter.Present(ctx, toast)
	if n.hooks.OnPresented != nil {
		n.hooks.OnPresented(toast)
	}
	return Outcome{Presented: true, Toast: toast}
}

// Dispatch fires the side effect bound to d's kind.
func (n *Notifier) Dispatch(ctx context.Context, d apierr.Descriptor) {
	switch d.Kind {
	case apierr.KindAuthentication:
		if n.hooks.OnAuthentication != nil {
			n.hooks.OnAuthentication(ctx, d)
		}
	case apierr.KindNetwork:
		if n.hooks.OnConnectivity != nil {
			n.hooks.OnConnectivity(ctx, d)
		}
	}
}

func (n *Notifier) throttled(d apierr.Descriptor) bool {
	key := throttleKey{kind: d.Kind, status: d.StatusCode, url: d.URL}
	now := n.clock.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.recent.Get(key); ok && now.Sub(last) < n.cfg.ThrottleWindow {
		return true
	}
	n.recent.Add(key, now)
	return false
}

func (n *Notifier) logDescriptor(d apierr.Descriptor) {
	kv := []any{
		"kind", d.Kind,
		"severity", d.Severity,
		"status", d.StatusCode,
		"method", d.Method,
		"url", d.URL,
		"code", d.Code,
	}
	switch d.Severity {
	case apierr.SeverityHigh, apierr.SeverityCritical:
		n.log.Error(errors.New(d.Message), "request failed", kv...)
	default:
		n.log.Info("request failed", append(kv, "message", d.Message)...)
	}
}
