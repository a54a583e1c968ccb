package qmsauth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/qmsauth/api"
	"github.com/MrEthical07/qmsauth/retry"
	"github.com/MrEthical07/qmsauth/storage"
)

// Config is the complete client configuration. Start from DefaultConfig and
// override fields; the zero value does not validate.
type Config struct {
	Transport     TransportConfig
	Paths         api.Paths
	Retry         retry.Policy
	Storage       StorageConfig
	Session       SessionConfig
	RBAC          RBACConfig
	Notifications NotificationConfig
	Signals       SignalConfig
	Metrics       MetricsConfig
	Diagnostics   DiagnosticsConfig
	CrossTab      CrossTabConfig
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig configures the HTTP pipeline.
type TransportConfig struct {
	// BaseURL is required unless a backend is supplied with Builder.WithBackend.
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig configures the credential store.
type StorageConfig struct {
	Prefix       string
	RBACCacheTTL time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token upkeep.
type SessionConfig struct {
	// AutoRefreshInterval is how often the access token expiry is checked.
	// Zero disables the background check.
	AutoRefreshInterval time.Duration
	// RefreshLeeway triggers a refresh when the access token expires within it.
	RefreshLeeway time.Duration
	// BackgroundTimeout bounds a refresh started by the background check.
	BackgroundTimeout time.Duration
}

/*
====================================
RBAC CONFIG
====================================
*/

// RBACConfig controls permission loading.
type RBACConfig struct {
	// FailClosed clears loaded grants when a fetch fails. The default keeps
	// the previous grants and only records the error.
	FailClosed bool
	// SkipOnLogin leaves grants unloaded after Login until RefreshRBAC is called.
	SkipOnLogin bool
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig configures toast throttling.
type NotificationConfig struct {
	ThrottleWindow   time.Duration
	ThrottleCapacity int
}

/*
====================================
SIGNAL CONFIG
====================================
*/

// SignalConfig controls asynchronous signal delivery.
type SignalConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DIAGNOSTICS CONFIG
====================================
*/

// DiagnosticsConfig sizes the classified error log.
type DiagnosticsConfig struct {
	ErrorLogSize int
}

/*
====================================
CROSS-TAB CONFIG
====================================
*/

// CrossTabConfig controls reaction to other clients sharing the store.
type CrossTabConfig struct {
	// Disabled ignores broadcast events even when a broadcaster is set.
	Disabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Transport: TransportConfig{
			Timeout:   30 * time.Second,
			UserAgent: "qmsauth",
		},
		Paths: api.DefaultPaths(),
		Retry: retry.DefaultPolicy(),
		Storage: StorageConfig{
			Prefix:       storage.DefaultPrefix,
			RBACCacheTTL: storage.DefaultRBACCacheTTL,
		},
		Session: SessionConfig{
			AutoRefreshInterval: time.Minute,
			RefreshLeeway:       2 * time.Minute,
			BackgroundTimeout:   30 * time.Second,
		},
		Notifications: NotificationConfig{
			ThrottleWindow:   5 * time.Second,
			ThrottleCapacity: 256,
		},
		Signals: SignalConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Diagnostics: DiagnosticsConfig{
			ErrorLogSize: 100,
		},
	}
}

// DefaultConfig returns the configuration the QMS front end ships with.
// Transport.BaseURL still has to be set.
func DefaultConfig() Config {
	return defaultConfig()
}

// DevelopmentConfig targets a backend on localhost with quiet retries and
// no toast throttling.
func DevelopmentConfig() Config {
	cfg := defaultConfig()
	cfg.Transport.BaseURL = "http://localhost:8000"
	cfg.Retry.MaxRetries = 1
	cfg.Notifications.ThrottleWindow = time.Millisecond
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Retry = cfg.Retry.Clone()
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for values the client cannot run with.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// Transport
	if c.Transport.BaseURL != "" {
		u, err := url.Parse(c.Transport.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("Transport BaseURL %q must be an absolute URL", c.Transport.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("Transport BaseURL scheme must be http or https")
		}
	}
	if c.Transport.Timeout <= 0 {
		return errors.New("Transport Timeout must be > 0")
	}

	// Paths
	for name, p := range map[string]string{
		"Login":   c.Paths.Login,
		"Logout":  c.Paths.Logout,
		"Refresh": c.Paths.Refresh,
		"Verify":  c.Paths.Verify,
		"User":    c.Paths.User,
		"RBAC":    c.Paths.RBAC,
	} {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("Paths %s must not be empty", name)
		}
	}

	// Retry
	if err := c.Retry.Validate(); err != nil {
		return err
	}

	// Storage
	if strings.TrimSpace(c.Storage.Prefix) == "" {
		return errors.New("Storage Prefix must not be empty")
	}
	if c.Storage.RBACCacheTTL <= 0 {
		return errors.New("Storage RBACCacheTTL must be > 0")
	}

	// Session
	if c.Session.AutoRefreshInterval < 0 {
		return errors.New("Session AutoRefreshInterval must be >= 0")
	}
	if c.Session.RefreshLeeway < 0 {
		return errors.New("Session RefreshLeeway must be >= 0")
	}
	if c.Session.BackgroundTimeout <= 0 {
		return errors.New("Session BackgroundTimeout must be > 0")
	}

	// Notifications
	if c.Notifications.ThrottleWindow < 0 {
		return errors.New("Notifications ThrottleWindow must be >= 0")
	}
	if c.Notifications.ThrottleCapacity < 0 {
		return errors.New("Notifications ThrottleCapacity must be >= 0")
	}

	// Signals
	if c.Signals.Enabled && c.Signals.BufferSize <= 0 {
		return errors.New("Signals BufferSize must be > 0 when enabled")
	}

	// Diagnostics
	if c.Diagnostics.ErrorLogSize <= 0 {
		return errors.New("Diagnostics ErrorLogSize must be > 0")
	}
	return nil
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks a LintWarning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	default:
		return "HIGH"
	}
}

// LintWarning flags a configuration that validates but is probably a mistake.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing the warnings at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports questionable settings. It assumes Validate passes.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if strings.HasPrefix(c.Transport.BaseURL, "http://") && !isLoopbackURL(c.Transport.BaseURL) {
		add("insecure_base_url", LintHigh, "BaseURL %q sends tokens over plain http", c.Transport.BaseURL)
	}
	if c.Session.AutoRefreshInterval == 0 {
		add("auto_refresh_disabled", LintWarn, "access tokens are only refreshed on demand")
	}
	if c.Session.AutoRefreshInterval > 0 && c.Session.RefreshLeeway < c.Session.AutoRefreshInterval {
		add("leeway_below_interval", LintWarn,
			"RefreshLeeway %s is shorter than AutoRefreshInterval %s; tokens may expire between checks",
			c.Session.RefreshLeeway, c.Session.AutoRefreshInterval)
	}
	if c.Retry.MaxRetries == 0 {
		add("retries_disabled", LintInfo, "transient failures are surfaced immediately")
	}
	if c.Retry.MaxRetries > 5 {
		add("retries_excessive", LintWarn, "MaxRetries %d can hold a request for minutes", c.Retry.MaxRetries)
	}
	if c.Storage.RBACCacheTTL > 24*time.Hour {
		add("rbac_cache_long", LintWarn, "RBAC cache TTL %s keeps revoked permissions visible", c.Storage.RBACCacheTTL)
	}
	if c.RBAC.SkipOnLogin && c.RBAC.FailClosed {
		add("rbac_closed_unloaded", LintInfo, "every permission check fails until RefreshRBAC succeeds")
	}
	if c.Signals.Enabled && !c.Signals.DropIfFull {
		add("signals_block", LintWarn, "a slow signal sink blocks session operations")
	}
	if !c.Metrics.Enabled && c.Metrics.EnableLatencyHistograms {
		add("histograms_without_metrics", LintInfo, "latency histograms need Metrics.Enabled")
	}
	if c.Notifications.ThrottleWindow == 0 {
		add("throttle_default", LintInfo, "ThrottleWindow 0 falls back to the notifier default")
	}
	return ws
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
