package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/goContacts/metrics"
	"github.com/MrEthical07/goContacts/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() metrics.Snapshot
	AuditDropped() uint64
}

// latency mirrors one service histogram as three instruments: cumulative
// bucket counts keyed by an "le" attribute, the sample count and the sum in
// seconds.
type latency struct {
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableCounter
	sum     metric.Float64ObservableCounter
}

// Exporter mirrors the service metrics into an OpenTelemetry Meter. Values
// are read once per collection cycle.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     map[metrics.ID]metric.Int64ObservableCounter
	latencies    map[metrics.ID]latency
	auditDropped metric.Int64ObservableCounter
	bounds       []metric.ObserveOption
}

func NewExporter(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:    source,
		counters:  make(map[metrics.ID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
		latencies: make(map[metrics.ID]latency, len(internaldefs.HistogramDefs)),
		bounds:    bucketAttributes(),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		l, err := newLatency(meter, def)
		if err != nil {
			return nil, err
		}
		e.latencies[def.ID] = l
		observables = append(observables, l.buckets, l.count, l.sum)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newLatency(meter metric.Meter, def internaldefs.HistogramDef) (latency, error) {
	var (
		l   latency
		err error
	)
	if l.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound.")); err != nil {
		return l, fmt.Errorf("otel gauge %s_bucket: %w", def.Name, err)
	}
	if l.count, err = meter.Int64ObservableCounter(def.Name+"_count",
		metric.WithDescription(def.Help+" Sample count.")); err != nil {
		return l, fmt.Errorf("otel counter %s_count: %w", def.Name, err)
	}
	if l.sum, err = meter.Float64ObservableCounter(def.Name+"_sum",
		metric.WithDescription(def.Help+" Sum of samples."), metric.WithUnit("s")); err != nil {
		return l, fmt.Errorf("otel counter %s_sum: %w", def.Name, err)
	}
	return l, nil
}

// bucketAttributes returns one "le" attribute per bucket, ending with +Inf.
func bucketAttributes() []metric.ObserveOption {
	opts := make([]metric.ObserveOption, 0, len(internaldefs.HistogramBounds)+1)
	for _, b := range internaldefs.HistogramBounds {
		le := strconv.FormatFloat(b, 'g', -1, 64)
		opts = append(opts, metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le))))
	}
	return append(opts, metric.WithAttributeSet(attribute.NewSet(attribute.String("le", "+Inf"))))
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}
	for id, l := range e.latencies {
		h := snap.Histograms[id]
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(h.Buckets))
		for i, opt := range e.bounds {
			o.ObserveInt64(l.buckets, int64(cumulative[i]), opt)
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
		o.ObserveFloat64(l.sum, h.Sum.Seconds())
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback. The Meter's provider is left
// running.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
