// Package monitor is the naming server's metrics facade: an OpenTelemetry
// meter recording per-operation counts, error counts, and latency, plus a
// Prometheus exporter serving them over HTTP. The attribute-caching
// pattern below mirrors the teacher's own otel instrumentation.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opencensus.io/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nsfs/naming/naming/nserr"
)

// OpKey annotates which namespace operation a measurement belongs to:
// lock, unlock, isDirectory, list, getStorage, createFile,
// createDirectory, delete, register.
const OpKey = "op"

// ErrorCategoryKey reduces error cardinality to the nserr sentinel name.
const ErrorCategoryKey = "error_category"

var (
	meter = otel.Meter("naming")

	opAttributeSet      sync.Map
	opErrorAttributeSet sync.Map
)

func loadOrStore(mp *sync.Map, key string, gen func() attribute.Set) metric.MeasurementOption {
	if v, ok := mp.Load(key); ok {
		return v.(metric.MeasurementOption)
	}
	v, _ := mp.LoadOrStore(key, metric.WithAttributeSet(gen()))
	return v.(metric.MeasurementOption)
}

func opAttr(op string) metric.MeasurementOption {
	return loadOrStore(&opAttributeSet, op, func() attribute.Set {
		return attribute.NewSet(attribute.String(OpKey, op))
	})
}

func opErrorAttr(op, category string) metric.MeasurementOption {
	return loadOrStore(&opErrorAttributeSet, op+"/"+category, func() attribute.Set {
		return attribute.NewSet(attribute.String(OpKey, op), attribute.String(ErrorCategoryKey, category))
	})
}

// Metrics holds every counter/histogram/gauge the naming server records.
// The zero value is not usable; construct with New.
type Metrics struct {
	opCount      metric.Int64Counter
	opErrorCount metric.Int64Counter
	opLatency    metric.Float64Histogram

	treeSize    metric.Int64ObservableGauge
	knownNodes  metric.Int64ObservableGauge

	treeSizeFunc   func() int64
	knownNodesFunc func() int64
}

// New builds the meter instruments. Call NewPrometheusHandler first if the
// caller wants metrics exported: it installs the global MeterProvider that
// New's instruments bind to. Call RegisterGauges once tree/registry
// accessors are available, and use RecordOp to time every namespace
// operation.
func New() (*Metrics, error) {
	meter = otel.Meter("naming")
	m := &Metrics{}
	var err error

	if m.opCount, err = meter.Int64Counter("naming.op.count",
		metric.WithDescription("Count of namespace operations, by op.")); err != nil {
		return nil, err
	}
	if m.opErrorCount, err = meter.Int64Counter("naming.op.error_count",
		metric.WithDescription("Count of namespace operation failures, by op and error category.")); err != nil {
		return nil, err
	}
	if m.opLatency, err = meter.Float64Histogram("naming.op.latency",
		metric.WithDescription("Namespace operation latency in milliseconds, by op."),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.treeSize, err = meter.Int64ObservableGauge("naming.tree.size",
		metric.WithDescription("Total node count in the namespace tree.")); err != nil {
		return nil, err
	}
	if m.knownNodes, err = meter.Int64ObservableGauge("naming.registry.known_nodes",
		metric.WithDescription("Number of distinct registered storage nodes.")); err != nil {
		return nil, err
	}

	return m, nil
}

// RegisterGauges wires the observable gauges to live accessors — typically
// tree.Size and registry.Registry.KnownNodes' length — deferred until the
// caller has constructed those, since New runs before the namespace is.
func (m *Metrics) RegisterGauges(treeSize, knownNodes func() int64) error {
	m.treeSizeFunc = treeSize
	m.knownNodesFunc = knownNodes

	_, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		o.ObserveInt64(m.treeSize, m.treeSizeFunc())
		o.ObserveInt64(m.knownNodes, m.knownNodesFunc())
		return nil
	}, m.treeSize, m.knownNodes)
	return err
}

// RecordOp records one occurrence of op, its outcome (nil err means
// success), and its duration.
func (m *Metrics) RecordOp(ctx context.Context, op string, start time.Time, err error) {
	m.opCount.Add(ctx, 1, opAttr(op))
	m.opLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000, opAttr(op))
	if err != nil {
		m.opErrorCount.Add(ctx, 1, opErrorAttr(op, errorCategory(err)))
	}
}

// errorCategory reduces an arbitrary error to a low-cardinality label by
// checking it against the naming/nserr sentinels. Kept here rather than in
// naming/nserr so that package stays free of an observability dependency.
func errorCategory(err error) string {
	for _, c := range []struct {
		name     string
		sentinel error
	}{
		{"invalid_argument", nserr.ErrInvalidArgument},
		{"not_found", nserr.ErrNotFound},
		{"already_registered", nserr.ErrAlreadyRegistered},
		{"no_storage", nserr.ErrNoStorage},
		{"transport", nserr.ErrTransport},
		{"cancelled", nserr.ErrCancelled},
		{"conflict", nserr.ErrConflict},
	} {
		if errors.Is(err, c.sentinel) {
			return c.name
		}
	}
	return "unknown"
}

// NewPrometheusHandler builds an OTel Prometheus exporter, installs it as
// the global MeterProvider's reader, and returns the http.Handler to serve
// at /metrics.
func NewPrometheusHandler() (http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter = otel.Meter("naming")
	return promhttp.Handler(), nil
}

// StartSpan opens a minimal opencensus trace span for op. The naming
// server ships with no exporter configured by default (spec.md's
// Non-goals exclude tracing infrastructure), so spans opened here are not
// exported anywhere; no code in this module calls StartSpan. It follows
// the teacher's own "thin tracing hook" style.
func StartSpan(ctx context.Context, op string) (context.Context, *trace.Span) {
	return trace.StartSpan(ctx, "naming/"+op)
}
