package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "water_budget"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// planning service.
type Metrics struct {
	// Plan computation, labelled by entry point.
	PlansComputed  *prometheus.CounterVec   // labels: source={http,kafka}, mode={recommend,allocate}
	PlanFailures   *prometheus.CounterVec   // labels: source, kind={invalid_input,no_data,upstream,internal}
	PlanDegenerate prometheus.Counter       // reference schedule needed no irrigation
	PlanDuration   *prometheus.HistogramVec // labels: source

	// Batch pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Remote geodata metrics.
	GeodataRequests     *prometheus.CounterVec   // labels: layer={ndvi,precipitation,pet}, outcome={success,error,missing}
	GeodataCache        *prometheus.CounterVec   // labels: result={hit,miss}
	GeodataAPIDuration  *prometheus.HistogramVec // labels: layer
	GeodataEnabled      prometheus.Gauge
	GeodataBreakerState prometheus.Gauge // 0 closed, 1 half-open, 2 open
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PlansComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_computed_total",
			Help:      "Irrigation plans computed, by entry point and mode.",
		}, []string{"source", "mode"}),
		PlanFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_failures_total",
			Help:      "Plan requests that produced no schedule, by entry point and failure kind.",
		}, []string{"source", "kind"}),
		PlanDegenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_degenerate_total",
			Help:      "Plans whose reference schedule required no irrigation.",
		}),
		PlanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Time to resolve inputs and compute one plan.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total plan requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total plan reports written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the batch pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-plan-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GeodataRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geodata_requests_total",
			Help:      "Geodata API requests by layer and outcome.",
		}, []string{"layer", "outcome"}),
		GeodataCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geodata_cache_total",
			Help:      "Geodata cache lookups by result.",
		}, []string{"result"}),
		GeodataAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geodata_api_duration_seconds",
			Help:      "Geodata API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"layer"}),
		GeodataEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geodata_enabled",
			Help:      "1 when remote geodata lookup is enabled, 0 otherwise.",
		}),
		GeodataBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geodata_breaker_state",
			Help:      "Geodata circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PlansComputed,
		m.PlanFailures,
		m.PlanDegenerate,
		m.PlanDuration,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GeodataRequests,
		m.GeodataCache,
		m.GeodataAPIDuration,
		m.GeodataEnabled,
		m.GeodataBreakerState,
	}
}
