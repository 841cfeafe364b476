package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

var (
	// ErrNilMeter is returned when no Meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// Source is anything that exposes goSession metrics. *goSession.Manager
// satisfies it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type observedSeries struct {
	id         goSession.MetricID
	instrument metric.Int64ObservableCounter
	opt        metric.ObserveOption
}

type observedHistogram struct {
	id      goSession.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	le      [internaldefs.BucketCount]metric.ObserveOption
}

// Exporter publishes goSession metrics through asynchronous OTel instruments.
// Labeled counter families become one instrument with an attribute per series.
type Exporter struct {
	source       Source
	registration metric.Registration
	series       []observedSeries
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
}

// NewExporter creates the instruments on meter and registers a callback that
// reads source on every collection.
func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source: source,
		series: make([]observedSeries, 0, len(internaldefs.CounterDefs)),
	}

	families := map[string]metric.Int64ObservableCounter{}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, ok := families[def.Name]
		if !ok {
			var err error
			ins, err = meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
			if err != nil {
				return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
			}
			families[def.Name] = ins
			observables = append(observables, ins)
		}

		s := observedSeries{id: def.ID, instrument: ins}
		if def.Label.Key != "" {
			s.opt = metric.WithAttributes(attribute.String(def.Label.Key, def.Label.Value))
		}
		e.series = append(e.series, s)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}

		var err error
		h.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription("Cumulative bucket counts by upper bound in seconds."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", def.Name, err)
		}
		h.count, err = meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", def.Name, err)
		}
		for i, le := range internaldefs.HistogramBounds {
			h.le[i] = metric.WithAttributes(attribute.String("le", le))
		}

		e.histograms = append(e.histograms, h)
		observables = append(observables, h.buckets, h.count)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, s := range e.series {
		if s.opt != nil {
			o.ObserveInt64(s.instrument, int64(snapshot.Counters[s.id]), s.opt)
		} else {
			o.ObserveInt64(s.instrument, int64(snapshot.Counters[s.id]))
		}
	}

	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.Cumulative(raw)
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), h.le[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[internaldefs.BucketCount-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. It is safe on a nil Exporter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
