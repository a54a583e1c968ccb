package qmsauth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/qmsauth/api"
	"github.com/MrEthical07/qmsauth/broadcast"
	"github.com/MrEthical07/qmsauth/diag"
	"github.com/MrEthical07/qmsauth/internal/flows"
	"github.com/MrEthical07/qmsauth/internal/signalbus"
	"github.com/MrEthical07/qmsauth/notify"
	"github.com/MrEthical07/qmsauth/storage"
	"github.com/MrEthical07/qmsauth/transport"
	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"
)

// Client owns one session against the QMS backend. It is safe for
// concurrent use; build it with New().Build().
type Client struct {
	cfg    Config
	log    logr.Logger
	clock  clock.Clock
	origin string

	backend     api.Backend
	store       *storage.Store
	pipeline    *transport.Pipeline
	notifier    *notify.Notifier
	errorLog    *diag.ErrorLog
	broadcaster broadcast.Broadcaster
	signals     *signalbus.Dispatcher[Signal]
	metrics     *Metrics
	state       *sessionState
	flows       flows.Deps

	refreshGroup singleflight.Group
	// commitMu pairs a session transition with the store write that goes
	// with it, so a store never holds credentials of a session the client
	// has already left.
	commitMu sync.Mutex

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
	closed      atomic.Bool
	closeOnce   sync.Once
}

// Session returns the current snapshot. It never blocks.
func (c *Client) Session() Session {
	return c.state.load()
}

// Subscribe calls fn with every new snapshot until the returned func is
// called. fn runs on the goroutine that changed the state.
func (c *Client) Subscribe(fn func(Session)) (unsubscribe func()) {
	return c.state.subscribe(fn)
}

// HTTP returns the request pipeline for application calls. Requests carry
// the session's bearer token and share its retry, notification and 401
// teardown behavior.
func (c *Client) HTTP() *transport.Pipeline {
	return c.pipeline
}

// Store returns the credential store.
func (c *Client) Store() *storage.Store {
	return c.store
}

// ErrorLog returns the ring of recently classified failures.
func (c *Client) ErrorLog() *diag.ErrorLog {
	return c.errorLog
}

// Origin identifies this client on the broadcaster.
func (c *Client) Origin() string {
	return c.origin
}

// Metrics returns the live counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot copies the counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// SignalsDropped returns how many signals were discarded because the sink
// fell behind.
func (c *Client) SignalsDropped() uint64 {
	return c.signals.Dropped()
}

// Close stops the background workers and flushes queued signals. The
// session and stored credentials are left as they are.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.wg.Wait()
		c.signals.Close()
	})
	return nil
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}

// commit applies a and, when it is accepted, runs persist before any other
// commit can move the session on. Subscribers are notified after both.
func (c *Client) commit(a action, persist func(next Session)) (prev, next Session, err error) {
	c.commitMu.Lock()
	prev, next, err = c.state.apply(a)
	if err == nil && persist != nil {
		persist(next)
	}
	c.commitMu.Unlock()
	if err == nil {
		c.state.notify(next)
	}
	return prev, next, err
}

// accessToken feeds the pipeline. Before the session is restored the stored
// token is used, so Initialize can fetch the user after a refresh.
func (c *Client) accessToken(ctx context.Context) (string, bool) {
	if s := c.state.load(); s.Tokens != nil && s.Tokens.Access != "" {
		return s.Tokens.Access, true
	}
	return c.store.AccessToken(ctx)
}

func (c *Client) emit(ctx context.Context, sig Signal) {
	if sig.Timestamp.IsZero() {
		sig.Timestamp = c.clock.Now()
	}
	c.signals.Emit(ctx, sig)
}

func (c *Client) publish(ctx context.Context, typ broadcast.EventType, key string) {
	if c.broadcaster == nil {
		return
	}
	err := c.broadcaster.Publish(ctx, broadcast.Event{
		Type:   typ,
		Key:    key,
		Origin: c.origin,
		At:     c.clock.Now(),
	})
	if err != nil {
		c.log.Info("broadcast failed", "type", string(typ), "error", err.Error())
	}
}

func (c *Client) onStorageRemoved(ctx context.Context, key string) {
	c.publish(context.WithoutCancel(ctx), broadcast.EventStorageRemoved, key)
}

func (c *Client) pipelineHooks() transport.Hooks {
	m := c.metrics
	return transport.Hooks{
		OnRequest: func(transport.RequestMeta) { m.Inc(MetricRequest) },
		OnResponse: func(_ transport.RequestMeta, _ int, elapsed time.Duration) {
			m.Observe(MetricRequestLatency, elapsed)
		},
		OnError: func(_ transport.RequestMeta, _ Descriptor, elapsed time.Duration) {
			m.Inc(MetricRequestFailure)
			m.Observe(MetricRequestLatency, elapsed)
		},
		OnRetry: func(transport.RequestMeta, time.Duration) { m.Inc(MetricRequestRetry) },
	}
}

func (c *Client) flowDeps() flows.Deps {
	warn := func(msg string, kv ...any) { c.log.Info(msg, kv...) }
	saveTokens := c.store.SetTokens
	saveUser := c.store.SetUser
	clearStore := c.store.ClearAuth

	return flows.Deps{
		Initialize: flows.InitializeDeps{
			LoadTokens:       c.store.Tokens,
			LoadUser:         c.store.User,
			Verify:           c.backend.Verify,
			Refresh:          c.backend.Refresh,
			FetchUser:        c.backend.CurrentUser,
			SaveTokens:       saveTokens,
			SaveUser:         saveUser,
			ClearStore:       clearStore,
			Warn:             warn,
			ErrTokenRejected: ErrTokenRejected,
		},
		Login: flows.LoginDeps{
			Login:                 c.backend.Login,
			SaveTokens:            saveTokens,
			SaveUser:              saveUser,
			SaveRememberMe:        c.store.SetRememberMe,
			Classify:              c.pipeline.Classifier().ClassifyError,
			Warn:                  warn,
			LoginURL:              c.resolve(c.cfg.Paths.Login),
			ErrInvalidCredentials: ErrInvalidCredentials,
		},
		Refresh: flows.RefreshDeps{
			Refresh:           c.backend.Refresh,
			ErrNoRefreshToken: ErrNoRefreshToken,
		},
		Logout: flows.LogoutDeps{
			Logout: c.backend.Logout,
			Warn:   warn,
		},
		RBAC: flows.RBACDeps{
			CacheValid: c.store.IsRBACCacheValid,
			LoadCache:  c.store.RBACData,
			Fetch:      c.backend.RBAC,
			Now:        c.clock.Now,
		},
	}
}

func (c *Client) resolve(path string) string {
	u, err := c.pipeline.ResolveURL(path)
	if err != nil {
		return path
	}
	return u
}
