package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/qmsauth"
)

type fakeSource struct {
	snapshot qmsauth.MetricsSnapshot
	dropped  uint64
	phase    qmsauth.Phase
}

func (f fakeSource) MetricsSnapshot() qmsauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) SignalsDropped() uint64                   { return f.dropped }
func (f fakeSource) Session() qmsauth.Session                 { return qmsauth.Session{Phase: f.phase} }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: qmsauth.MetricsSnapshot{
			Counters:   map[qmsauth.MetricID]uint64{},
			Histograms: map[qmsauth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderGroupsCountersByLabel(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: qmsauth.MetricsSnapshot{
			Counters: map[qmsauth.MetricID]uint64{
				qmsauth.MetricLoginSuccess:         7,
				qmsauth.MetricUnauthorizedTeardown: 2,
				qmsauth.MetricToastPresented:       5,
				qmsauth.MetricToastThrottled:       3,
				qmsauth.MetricStaleResult:          1,
			},
			Histograms: map[qmsauth.MetricID][]uint64{
				qmsauth.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
		phase:   qmsauth.PhaseRefreshingRBAC,
	})

	out := exp.Render()
	for _, want := range []string{
		`qmsauth_logins_total{outcome="success"} 7`,
		`qmsauth_logins_total{outcome="failure"} 0`,
		`qmsauth_session_events_total{event="unauthorized"} 2`,
		`qmsauth_toasts_total{outcome="presented"} 5`,
		`qmsauth_toasts_total{outcome="throttled"} 3`,
		`qmsauth_dropped_state_changes_total{cause="stale"} 1`,
		`qmsauth_session_phase{phase="refreshing_rbac"} 1`,
		`qmsauth_session_phase{phase="authenticated"} 0`,
		`qmsauth_request_latency_seconds_bucket{le="0.05"} 1`,
		`qmsauth_request_latency_seconds_bucket{le="10"} 28`,
		`qmsauth_request_latency_seconds_bucket{le="+Inf"} 36`,
		"qmsauth_request_latency_seconds_count 36",
		"qmsauth_signals_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "# TYPE qmsauth_toasts_total counter"); n != 1 {
		t.Fatalf("toast family declared %d times", n)
	}
	if exp.Render() != out {
		t.Fatal("render is not deterministic")
	}
}

func TestRenderOmitsLatencyWhenHistogramsDisabled(t *testing.T) {
	m := qmsauth.NewMetrics(qmsauth.MetricsConfig{Enabled: true})
	m.Inc(qmsauth.MetricToastThrottled)

	out := NewPrometheusExporterFromSource(fakeSource{snapshot: m.Snapshot()}).Render()
	if !strings.Contains(out, `qmsauth_toasts_total{outcome="throttled"} 1`) {
		t.Fatalf("missing throttled toasts:\n%s", out)
	}
	if strings.Contains(out, "qmsauth_request_latency_seconds_bucket") {
		t.Fatalf("latency rendered without histograms:\n%s", out)
	}
}

func TestRenderFromClientMetrics(t *testing.T) {
	m := qmsauth.NewMetrics(qmsauth.MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(qmsauth.MetricRequest)
	m.Observe(qmsauth.MetricRequestLatency, 300*time.Millisecond)

	out := NewPrometheusExporterFromSource(fakeSource{snapshot: m.Snapshot(), phase: qmsauth.PhaseAuthenticated}).Render()
	if !strings.Contains(out, `qmsauth_requests_total{event="attempt"} 1`) {
		t.Fatalf("missing request counter:\n%s", out)
	}
	if !strings.Contains(out, `qmsauth_request_latency_seconds_bucket{le="0.25"} 0`) ||
		!strings.Contains(out, `qmsauth_request_latency_seconds_bucket{le="0.5"} 1`) {
		t.Fatalf("latency landed in the wrong bucket:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: qmsauth.MetricsSnapshot{
			Counters:   map[qmsauth.MetricID]uint64{qmsauth.MetricLoginSuccess: 1},
			Histograms: map[qmsauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `qmsauth_session_phase{phase="uninitialized"} 1`) {
		t.Fatalf("phase gauge missing:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: qmsauth.MetricsSnapshot{
			Counters: map[qmsauth.MetricID]uint64{
				qmsauth.MetricLoginSuccess:   1000,
				qmsauth.MetricLoginFailure:   40,
				qmsauth.MetricRefreshSuccess: 800,
				qmsauth.MetricRequest:        12000,
				qmsauth.MetricRequestRetry:   30,
			},
			Histograms: map[qmsauth.MetricID][]uint64{
				qmsauth.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
