package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "webtools"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// VIN cache and history metrics.
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss,expired}
	CacheEvictions prometheus.Counter
	CacheEntries   prometheus.Gauge
	CacheSweeps    prometheus.Counter
	StorageErrors  *prometheus.CounterVec // labels: store={cache,history}, kind={quota,unavailable,other}
	DedupShared    prometheus.Counter

	// vPIC decoding metrics.
	DecodeRequests    *prometheus.CounterVec // labels: outcome={success,error,not_found}
	DecodeAPIDuration prometheus.Histogram

	// Batch worker metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// HTTP API metrics.
	HTTPRequests *prometheus.CounterVec // labels: route, status
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewUnregisteredMetrics creates Metrics that are never exposed, for one-shot
// commands that share instrumented components with the service.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vin_cache_lookups_total",
			Help:      "VIN cache lookups by result.",
		}, []string{"result"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vin_cache_evictions_total",
			Help:      "Entries evicted from the VIN cache to stay within capacity.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vin_cache_entries",
			Help:      "Current number of entries in the VIN cache.",
		}),
		CacheSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vin_cache_sweeps_total",
			Help:      "Full expiry sweeps run over the VIN cache.",
		}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Persisted-storage failures swallowed by the cache and history.",
		}, []string{"store", "kind"}),
		DedupShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vin_dedup_shared_total",
			Help:      "Lookups that attached to an already in-flight decode.",
		}),
		DecodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vin_decode_requests_total",
			Help:      "vPIC decode requests by outcome.",
		}, []string{"outcome"}),
		DecodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vin_decode_api_duration_seconds",
			Help:      "vPIC API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total decode requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total lookup events written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total decode requests that could not be resolved.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the batch worker is active, 0 when shut down.",
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
			Help:      "Duration of a complete batch extract-decode-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route pattern and status code.",
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CacheLookups,
		m.CacheEvictions,
		m.CacheEntries,
		m.CacheSweeps,
		m.StorageErrors,
		m.DedupShared,
		m.DecodeRequests,
		m.DecodeAPIDuration,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.HTTPRequests,
	}
}
