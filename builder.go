package qmsauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/qmsauth/api"
	"github.com/MrEthical07/qmsauth/broadcast"
	"github.com/MrEthical07/qmsauth/diag"
	"github.com/MrEthical07/qmsauth/internal/safego"
	"github.com/MrEthical07/qmsauth/internal/signalbus"
	"github.com/MrEthical07/qmsauth/notify"
	"github.com/MrEthical07/qmsauth/retry"
	"github.com/MrEthical07/qmsauth/storage"
	"github.com/MrEthical07/qmsauth/storage/memory"
	"github.com/MrEthical07/qmsauth/transport"
	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// Builder assembles a Client. A Builder is single use.
type Builder struct {
	config Config

	backend     api.Backend
	storage     storage.Backend
	broadcaster broadcast.Broadcaster
	presenter   notify.Presenter
	signalSink  SignalSink
	httpClient  *http.Client
	sleeper     retry.Sleeper
	clock       clock.Clock
	logger      logr.Logger
	origin      string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend replaces the HTTP backend built from Transport.BaseURL and
// Paths.
func (b *Builder) WithBackend(backend api.Backend) *Builder {
	b.backend = backend
	return b
}

// WithStorage sets the credential backend. The default keeps credentials in
// memory for the life of the client.
func (b *Builder) WithStorage(backend storage.Backend) *Builder {
	b.storage = backend
	return b
}

// WithBroadcaster connects the client to other clients sharing its store.
func (b *Builder) WithBroadcaster(bc broadcast.Broadcaster) *Builder {
	b.broadcaster = bc
	return b
}

// WithPresenter sets where toasts are shown. The default logs them.
func (b *Builder) WithPresenter(p notify.Presenter) *Builder {
	b.presenter = p
	return b
}

// WithSignalSink sets the receiver of lifecycle signals.
func (b *Builder) WithSignalSink(sink SignalSink) *Builder {
	b.signalSink = sink
	return b
}

// WithHTTPClient sets the client used for every request.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithRetrySleeper replaces the clock-driven wait between retries.
func (b *Builder) WithRetrySleeper(s retry.Sleeper) *Builder {
	b.sleeper = s
	return b
}

// WithClock sets the time source.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(l logr.Logger) *Builder {
	b.logger = l
	return b
}

// WithOrigin sets the identifier stamped on broadcast events. The default
// is a random UUID.
func (b *Builder) WithOrigin(origin string) *Builder {
	b.origin = origin
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every component and starts the
// background workers. Call Client.Close to stop them.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.backend == nil && cfg.Transport.BaseURL == "" {
		return nil, ErrMissingBackend
	}

	clk := b.clock
	if clk == nil {
		clk = clock.New()
	}
	log := b.logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	origin := b.origin
	if origin == "" {
		origin = uuid.NewString()
	}

	metrics := NewMetrics(cfg.Metrics)
	c := &Client{
		cfg:         cfg,
		log:         log,
		clock:       clk,
		origin:      origin,
		metrics:     metrics,
		broadcaster: b.broadcaster,
		errorLog:    diag.NewErrorLog(cfg.Diagnostics.ErrorLogSize),
		state:       newSessionState(log.WithName("session"), metrics),
	}

	// -------- STORE --------
	backend := b.storage
	if backend == nil {
		backend = memory.New()
	}
	c.store = storage.New(backend, storage.Options{
		Prefix:       cfg.Storage.Prefix,
		RBACCacheTTL: cfg.Storage.RBACCacheTTL,
		Clock:        clk,
		Logger:       log.WithName("storage"),
		OnRemove:     c.onStorageRemoved,
	})

	// -------- NOTIFIER --------
	presenter := b.presenter
	if presenter == nil {
		presenter = notify.LogPresenter{Logger: log.WithName("toast")}
	}
	notifier, err := notify.New(notify.Config{
		ThrottleWindow:   cfg.Notifications.ThrottleWindow,
		ThrottleCapacity: cfg.Notifications.ThrottleCapacity,
	}, presenter, clk, log.WithName("notify"))
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	notifier.SetHooks(notify.Hooks{
		OnAuthentication: c.onAuthenticationFailure,
		OnConnectivity:   c.onConnectivityLost,
		OnPresented:      func(notify.Toast) { metrics.Inc(MetricToastPresented) },
		OnThrottled:      func(Descriptor) { metrics.Inc(MetricToastThrottled) },
	})
	c.notifier = notifier

	// -------- PIPELINE --------
	sleeper := b.sleeper
	if sleeper == nil {
		sleeper = retry.ClockSleeper{Clock: clk}
	}
	coordinator := retry.NewCoordinator(cfg.Retry,
		retry.WithSleeper(sleeper),
		retry.WithLogger(log.WithName("retry")),
	)
	pipeline, err := transport.New(transport.Config{
		BaseURL:   cfg.Transport.BaseURL,
		Timeout:   cfg.Transport.Timeout,
		UserAgent: cfg.Transport.UserAgent,
	}, transport.Deps{
		HTTPClient:     b.httpClient,
		Tokens:         transport.TokenSourceFunc(c.accessToken),
		Retry:          coordinator,
		Notifier:       notifier,
		ErrorLog:       c.errorLog,
		Clock:          clk,
		Logger:         log.WithName("http"),
		Hooks:          c.pipelineHooks(),
		OnUnauthorized: c.onUnauthorized,
	})
	if err != nil {
		return nil, err
	}
	c.pipeline = pipeline

	c.backend = b.backend
	if c.backend == nil {
		c.backend = api.NewHTTPBackend(pipeline, cfg.Paths)
	}

	// -------- SIGNALS --------
	c.signals = signalbus.New[Signal](signalbus.Config{
		Enabled:    cfg.Signals.Enabled,
		BufferSize: cfg.Signals.BufferSize,
		DropIfFull: cfg.Signals.DropIfFull,
	}, b.signalSink, func(r any) {
		log.Error(fmt.Errorf("panic: %v", r), "signal sink panicked")
	})

	c.flows = c.flowDeps()

	// -------- BACKGROUND --------
	c.ctx, c.cancel = context.WithCancel(context.Background())
	if b.broadcaster != nil && !cfg.CrossTab.Disabled {
		events, unsubscribe, err := b.broadcaster.Subscribe(c.ctx)
		if err != nil {
			c.cancel()
			c.signals.Close()
			return nil, fmt.Errorf("subscribe to broadcaster: %w", err)
		}
		c.unsubscribe = unsubscribe
		safego.Go(&c.wg, log, "cross-tab", func() { c.watchBroadcasts(events) })
	}
	if cfg.Session.AutoRefreshInterval > 0 {
		// The ticker is created here so a mock clock sees it before Build returns.
		ticker := clk.Ticker(cfg.Session.AutoRefreshInterval)
		safego.Go(&c.wg, log, "auto-refresh", func() { c.autoRefreshLoop(ticker) })
	}

	b.built = true
	return c, nil
}
