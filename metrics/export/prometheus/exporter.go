package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/qmsauth"
	"github.com/MrEthical07/qmsauth/metrics/export/internaldefs"
)

// MetricsSource is what the exporter scrapes. *qmsauth.Client satisfies it.
type MetricsSource interface {
	MetricsSnapshot() qmsauth.MetricsSnapshot
	SignalsDropped() uint64
	Session() qmsauth.Session
}

// PrometheusExporter renders client metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *qmsauth.Client) *PrometheusExporter {
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource creates an exporter from a custom [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It is empty when metrics are disabled.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.SignalsDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var w textWriter
	w.b.Grow(4096)

	for _, f := range internaldefs.CounterFamilies {
		w.header(f.Name, f.Help, "counter")
		for _, m := range f.Members {
			w.sample(f.Name, f.Label, m.Value, snapshot.Counters[m.ID])
		}
	}

	phase := p.source.Session().Phase
	w.header(internaldefs.SessionPhaseName, internaldefs.SessionPhaseHelp, "gauge")
	for _, ph := range internaldefs.Phases {
		var v uint64
		if ph == phase {
			v = 1
		}
		w.sample(internaldefs.SessionPhaseName, internaldefs.SessionPhaseLabel, internaldefs.PhaseLabel(ph), v)
	}

	lat := internaldefs.Latency
	if raw, ok := snapshot.Histograms[lat.ID]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		w.header(lat.Name, lat.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			w.sample(lat.Name+"_bucket", "le", le, cumulative[i])
		}
		w.sample(lat.Name+"_count", "", "", cumulative[len(cumulative)-1])
		// Snapshots carry no sum.
		w.sample(lat.Name+"_sum", "", "", 0)
	}

	w.header(internaldefs.SignalsDroppedName, internaldefs.SignalsDroppedHelp, "counter")
	w.sample(internaldefs.SignalsDroppedName, "", "", dropped)

	return w.b.String()
}

type textWriter struct {
	b strings.Builder
}

func (w *textWriter) header(name, help, typ string) {
	w.b.WriteString("# HELP ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(escapeHelp(help))
	w.b.WriteString("\n# TYPE ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(typ)
	w.b.WriteByte('\n')
}

// sample writes one series. An empty label writes the bare name.
func (w *textWriter) sample(name, label, value string, n uint64) {
	w.b.WriteString(name)
	if label != "" {
		w.b.WriteByte('{')
		w.b.WriteString(label)
		w.b.WriteString(`="`)
		w.b.WriteString(value)
		w.b.WriteString(`"}`)
	}
	w.b.WriteByte(' ')
	w.b.WriteString(strconv.FormatUint(n, 10))
	w.b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
