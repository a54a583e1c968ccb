package internaldefs

import (
	"strings"

	"github.com/MrEthical07/qmsauth"
)

// Member is one labeled series of a Family.
type Member struct {
	ID    qmsauth.MetricID
	Value string
}

// Family is an exported counter whose series share a name and differ by
// one label.
type Family struct {
	Name    string
	Help    string
	Label   string
	Members []Member
}

// CounterFamilies lists every exported counter in output order. Each
// counter MetricID belongs to exactly one family.
var CounterFamilies = []Family{
	{
		Name: "qmsauth_logins_total", Help: "Login attempts by outcome.", Label: "outcome",
		Members: []Member{
			{qmsauth.MetricLoginSuccess, "success"},
			{qmsauth.MetricLoginFailure, "failure"},
		},
	},
	{
		Name: "qmsauth_session_events_total", Help: "Sessions restored or ended, by event.", Label: "event",
		Members: []Member{
			{qmsauth.MetricSessionRestored, "restored"},
			{qmsauth.MetricLogout, "logout"},
			{qmsauth.MetricSessionExpired, "expired"},
			{qmsauth.MetricUnauthorizedTeardown, "unauthorized"},
			{qmsauth.MetricCrossTabLogout, "cross_tab"},
		},
	},
	{
		Name: "qmsauth_token_refreshes_total", Help: "Access token refreshes by outcome. Deduplicated callers joined a refresh already in flight.", Label: "outcome",
		Members: []Member{
			{qmsauth.MetricRefreshSuccess, "success"},
			{qmsauth.MetricRefreshFailure, "failure"},
			{qmsauth.MetricRefreshDeduplicated, "deduplicated"},
		},
	},
	{
		Name: "qmsauth_rbac_loads_total", Help: "Role and permission loads by outcome.", Label: "outcome",
		Members: []Member{
			{qmsauth.MetricRBACFetch, "fetched"},
			{qmsauth.MetricRBACCacheHit, "cached"},
			{qmsauth.MetricRBACFailure, "failure"},
		},
	},
	{
		Name: "qmsauth_requests_total", Help: "Backend exchanges seen by the error pipeline.", Label: "event",
		Members: []Member{
			{qmsauth.MetricRequest, "attempt"},
			{qmsauth.MetricRequestFailure, "failure"},
			{qmsauth.MetricRequestRetry, "retry"},
			{qmsauth.MetricConnectivityLost, "offline"},
		},
	},
	{
		Name: "qmsauth_toasts_total", Help: "Error notifications by outcome.", Label: "outcome",
		Members: []Member{
			{qmsauth.MetricToastPresented, "presented"},
			{qmsauth.MetricToastThrottled, "throttled"},
		},
	},
	{
		Name: "qmsauth_dropped_state_changes_total", Help: "Session state changes that were not applied.", Label: "cause",
		Members: []Member{
			{qmsauth.MetricRejectedTransition, "rejected"},
			{qmsauth.MetricStaleResult, "stale"},
		},
	},
}

// Latency is the single exported histogram.
var Latency = struct {
	ID   qmsauth.MetricID
	Name string
	Help string
}{qmsauth.MetricRequestLatency, "qmsauth_request_latency_seconds", "Backend exchange latency."}

// SignalsDropped names the counter of signals the sink fell behind on.
const (
	SignalsDroppedName = "qmsauth_signals_dropped_total"
	SignalsDroppedHelp = "Signals dropped because the sink fell behind."
)

// SessionPhase names the gauge that is 1 for the current phase and 0 for
// the others.
const (
	SessionPhaseName  = "qmsauth_session_phase"
	SessionPhaseHelp  = "Current session phase."
	SessionPhaseLabel = "phase"
)

// Phases lists the phases reported by the SessionPhase gauge.
var Phases = []qmsauth.Phase{
	qmsauth.PhaseUninitialized,
	qmsauth.PhaseInitializing,
	qmsauth.PhaseAuthenticated,
	qmsauth.PhaseUnauthenticated,
	qmsauth.PhaseRefreshingToken,
	qmsauth.PhaseRefreshingRBAC,
}

// PhaseLabel renders p as a label value.
func PhaseLabel(p qmsauth.Phase) string {
	return strings.ToLower(p.String())
}

// HistogramBounds are the upper bounds of the eight latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"10",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
