package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scoring engine.
type Metrics struct {
	PlotsLoaded        prometheus.Counter
	ObservationsLoaded prometheus.Counter
	GeometryErrors     prometheus.Counter
	UnmatchedTotal     prometheus.Counter
	BufferErrors       prometheus.Counter
	GroupErrors        prometheus.Counter
	ScoresComputed     prometheus.Counter
	PipelineRunning    prometheus.Gauge
	LastCreditedArea   prometheus.Gauge

	// Per-run processing metrics.
	GroupsProcessed prometheus.Histogram
	GroupDuration   prometheus.Histogram
	RunDuration     prometheus.Histogram

	// Source API metrics.
	SourceRequests    *prometheus.CounterVec   // labels: resource={plots,observations,records}, outcome={success,error}
	RecordCache       *prometheus.CounterVec   // labels: result={hit,miss,evict}
	SourceAPIDuration *prometheus.HistogramVec // labels: resource={plots,observations,records}
}

// NewMetrics creates and registers all scoring metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PlotsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "plots_loaded_total",
			Help:      "Total land plot features fetched from the source backend.",
		}),
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "observations_loaded_total",
			Help:      "Total observations fetched from the source backend.",
		}),
		GeometryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "geometry_errors_total",
			Help:      "Total features rejected during geometry normalization.",
		}),
		UnmatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "unmatched_observations_total",
			Help:      "Total observations that matched no plot.",
		}),
		BufferErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "buffer_errors_total",
			Help:      "Total observations dropped during disk construction.",
		}),
		GroupErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "group_errors_total",
			Help:      "Total plot-day groups whose union failed.",
		}),
		ScoresComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "scores_computed_total",
			Help:      "Total per-plot credit scores produced.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "biocredits",
			Name:      "pipeline_running",
			Help:      "1 while a scoring run is active, 0 when idle.",
		}),
		LastCreditedArea: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "biocredits",
			Name:      "last_run_credited_area_m2",
			Help:      "Total credited area across all plots from the most recent run.",
		}),
		GroupsProcessed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "biocredits",
			Name:      "groups_processed",
			Help:      "Number of plot-day groups aggregated per run.",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		GroupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "biocredits",
			Name:      "group_duration_seconds",
			Help:      "Duration of a single plot-day union computation.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "biocredits",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-score-store cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "source_requests_total",
			Help:      "Source API requests by resource and outcome.",
		}, []string{"resource", "outcome"}),
		RecordCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "biocredits",
			Name:      "record_cache_total",
			Help:      "Linked-record cache lookups by result.",
		}, []string{"result"}),
		SourceAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "biocredits",
			Name:      "source_api_duration_seconds",
			Help:      "Source API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"resource"}),
	}

	prometheus.MustRegister(
		m.PlotsLoaded,
		m.ObservationsLoaded,
		m.GeometryErrors,
		m.UnmatchedTotal,
		m.BufferErrors,
		m.GroupErrors,
		m.ScoresComputed,
		m.PipelineRunning,
		m.LastCreditedArea,
		m.GroupsProcessed,
		m.GroupDuration,
		m.RunDuration,
		m.SourceRequests,
		m.RecordCache,
		m.SourceAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PlotsLoaded:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "biocredits", Name: "plots_loaded_total"}),
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "biocredits", Name: "observations_loaded_total"}),
		GeometryErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "biocredits", Name: "geometry_errors_total"}),
		UnmatchedTotal:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "biocredits", Name: "unmatched_observations_total"}),
		BufferErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "biocredits", Name: "buffer_errors_total"}),
		GroupErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "biocredits", Name: "group_errors_total"}),
		ScoresComputed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "biocredits", Name: "scores_computed_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "biocredits", Name: "pipeline_running"}),
		LastCreditedArea:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "biocredits", Name: "last_run_credited_area_m2"}),
		GroupsProcessed:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "biocredits", Name: "groups_processed"}),
		GroupDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "biocredits", Name: "group_duration_seconds"}),
		RunDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "biocredits", Name: "run_duration_seconds"}),
		SourceRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "biocredits", Name: "source_requests_total"}, []string{"resource", "outcome"}),
		RecordCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "biocredits", Name: "record_cache_total"}, []string{"result"}),
		SourceAPIDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "biocredits", Name: "source_api_duration_seconds"}, []string{"resource"}),
	}
}
