package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/rte"
)

const metricsNamespace = "scormrte"

// Metrics counts RTE activity for Prometheus.
//
// Thread-safety: safe for concurrent use; the collectors are.
type Metrics struct {
	// APICallsTotal counts API function calls.
	// Labels: method (Initialize, GetValue, ...), error_code ("0", "404", ...)
	APICallsTotal *prometheus.CounterVec

	// APICallDurationSeconds measures call latency.
	// Labels: method
	APICallDurationSeconds *prometheus.HistogramVec

	// DataModelChangesTotal counts effective data model mutations.
	// Labels: source (api:SetValue, internal:session-init, ...)
	DataModelChangesTotal *prometheus.CounterVec

	// BroadcastsTotal counts observer broadcasts.
	// Labels: channel
	BroadcastsTotal *prometheus.CounterVec
}

var _ rte.TelemetrySink = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		APICallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "calls_total",
			Help:      "Total SCORM API calls by method and resulting error code",
		}, []string{"method", "error_code"}),
		APICallDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "call_duration_seconds",
			Help:      "SCORM API call latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method"}),
		DataModelChangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "datamodel",
			Name:      "changes_total",
			Help:      "Total effective data model changes by source",
		}, []string{"source"}),
		BroadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "observer",
			Name:      "broadcasts_total",
			Help:      "Total broadcasts sent to observers by channel",
		}, []string{"channel"}),
	}
}

// StoreAPICall implements rte.TelemetrySink.
func (m *Metrics) StoreAPICall(_ context.Context, call rte.APICall) error {
	m.APICallsTotal.WithLabelValues(call.Method, call.ErrorCode).Inc()
	m.APICallDurationSeconds.WithLabelValues(call.Method).Observe(call.Duration.Seconds())
	return nil
}

// StoreDataModelChange implements rte.TelemetrySink.
func (m *Metrics) StoreDataModelChange(_ context.Context, ev datamodel.ChangeEvent) error {
	m.DataModelChangesTotal.WithLabelValues(ev.Source).Inc()
	return nil
}

// Broadcast implements rte.TelemetrySink.
func (m *Metrics) Broadcast(_ context.Context, channel string, _ any) error {
	m.BroadcastsTotal.WithLabelValues(channel).Inc()
	return nil
}
