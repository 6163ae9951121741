package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marsweather_records_loaded_total",
			Help: "Total weather records (sols) loaded from the input table",
		},
	)

	QualityFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marsweather_quality_flags_total",
			Help: "Records flagged by physical range checks",
		},
		[]string{"flag"},
	)

	RowsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marsweather_rows_excluded_total",
			Help: "Rows left out of a derived view because a value was absent",
		},
		[]string{"view"},
	)

	ChartsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marsweather_charts_rendered_total",
			Help: "Total chart documents written",
		},
		[]string{"chart"},
	)

	RenderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marsweather_render_latency_seconds",
			Help:    "Time to build and write one chart document",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chart"},
	)

	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marsweather_fetch_attempts_total",
			Help: "Dataset download attempts",
		},
		[]string{"scheme", "status"},
	)
)

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
