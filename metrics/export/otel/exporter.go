package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/qmsauth"
	"github.com/MrEthical07/qmsauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is what the exporter observes. *qmsauth.Client satisfies it.
type MetricsSource interface {
	MetricsSnapshot() qmsauth.MetricsSnapshot
	SignalsDropped() uint64
	Session() qmsauth.Session
}

// series is one attribute set of an instrument, resolved once at setup.
type series struct {
	id   qmsauth.MetricID
	opts metric.ObserveOption
}

type family struct {
	counter metric.Int64ObservableCounter
	series  []series
}

// OTelExporter keeps the instrument registration alive until Close.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration

	families []family
	phase    metric.Int64ObservableGauge
	phases   []metric.ObserveOption
	latency  metric.Int64ObservableGauge
	bounds   []metric.ObserveOption
	samples  metric.Int64ObservableGauge
	dropped  metric.Int64ObservableCounter
}

// NewOTelExporter observes client through meter.
func NewOTelExporter(meter metric.Meter, client *qmsauth.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

// NewOTelExporterFromSource observes a custom [MetricsSource]. Each counter
// family is one instrument whose series carry the family label as an
// attribute.
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, f := range internaldefs.CounterFamilies {
		ins, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", f.Name, err)
		}
		fam := family{counter: ins, series: make([]series, 0, len(f.Members))}
		for _, m := range f.Members {
			fam.series = append(fam.series, series{id: m.ID, opts: withAttr(f.Label, m.Value)})
		}
		e.families = append(e.families, fam)
		observables = append(observables, ins)
	}

	var err error
	if e.phase, err = meter.Int64ObservableGauge(internaldefs.SessionPhaseName, metric.WithDescription(internaldefs.SessionPhaseHelp)); err != nil {
		return nil, fmt.Errorf("create phase gauge: %w", err)
	}
	for _, ph := range internaldefs.Phases {
		e.phases = append(e.phases, withAttr(internaldefs.SessionPhaseLabel, internaldefs.PhaseLabel(ph)))
	}

	lat := internaldefs.Latency
	if e.latency, err = meter.Int64ObservableGauge(lat.Name+"_bucket", metric.WithDescription("Cumulative latency bucket counts by upper bound.")); err != nil {
		return nil, fmt.Errorf("create latency buckets: %w", err)
	}
	for _, le := range internaldefs.HistogramBounds {
		e.bounds = append(e.bounds, withAttr("le", le))
	}
	if e.samples, err = meter.Int64ObservableGauge(lat.Name+"_count", metric.WithDescription("Latency samples recorded.")); err != nil {
		return nil, fmt.Errorf("create latency count: %w", err)
	}

	if e.dropped, err = meter.Int64ObservableCounter(internaldefs.SignalsDroppedName, metric.WithDescription(internaldefs.SignalsDroppedHelp)); err != nil {
		return nil, fmt.Errorf("create signals dropped counter: %w", err)
	}
	observables = append(observables, e.phase, e.latency, e.samples, e.dropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, f := range e.families {
		for _, s := range f.series {
			o.ObserveInt64(f.counter, int64(snapshot.Counters[s.id]), s.opts)
		}
	}

	current := e.source.Session().Phase
	for i, ph := range internaldefs.Phases {
		var v int64
		if ph == current {
			v = 1
		}
		o.ObserveInt64(e.phase, v, e.phases[i])
	}

	if raw, ok := snapshot.Histograms[internaldefs.Latency.ID]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i := range cumulative {
			o.ObserveInt64(e.latency, int64(cumulative[i]), e.bounds[i])
		}
		o.ObserveInt64(e.samples, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.dropped, int64(e.source.SignalsDropped()))
	return nil
}

func withAttr(key, value string) metric.ObserveOption {
	return metric.WithAttributeSet(attribute.NewSet(attribute.String(key, value)))
}

// Close unregisters the callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
