// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Warehouse metrics
	FramesFetched prometheus.Counter
	RowsFetched   prometheus.Counter
	FetchErrors   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Render metrics
	ChartsRendered   prometheus.Counter
	ChartFailures    *prometheus.CounterVec
	ArtifactsWritten *prometheus.CounterVec
	RenderDuration   *prometheus.HistogramVec

	// Download metrics
	DatasetsDownloaded prometheus.Counter
	DownloadErrors     *prometheus.CounterVec
	DownloadBytes      prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "covid_charts"
	}

	return &Metrics{
		FramesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "warehouse",
			Name:      "frames_fetched_total",
			Help:      "Total number of dataframes fetched from the warehouse",
		}),
		RowsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "warehouse",
			Name:      "rows_fetched_total",
			Help:      "Total number of observation rows fetched",
		}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "warehouse",
			Name:      "fetch_errors_total",
			Help:      "Total number of warehouse fetch errors by table",
		}, []string{"table"}),
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "warehouse",
			Name:      "fetch_duration_seconds",
			Help:      "Warehouse fetch duration by table",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),

		ChartsRendered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "charts_rendered_total",
			Help:      "Total number of charts rendered successfully",
		}),
		ChartFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "chart_failures_total",
			Help:      "Total number of chart failures by chart name",
		}, []string{"chart"}),
		ArtifactsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "artifacts_written_total",
			Help:      "Total number of artifacts written by format",
		}, []string{"format"}),
		RenderDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "render_duration_seconds",
			Help:      "Per-chart render duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chart"}),

		DatasetsDownloaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "datasets_downloaded_total",
			Help:      "Total number of datasets downloaded",
		}),
		DownloadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "download_errors_total",
			Help:      "Total number of download errors by dataset",
		}, []string{"dataset"}),
		DownloadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "download_bytes_total",
			Help:      "Total bytes downloaded",
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last fully successful render run",
		}),
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDownload records a completed dataset download.
func RecordDownload(bytes int64) {
	DefaultMetrics.DatasetsDownloaded.Inc()
	DefaultMetrics.DownloadBytes.Add(float64(bytes))
}

// RecordDownloadError records a failed dataset download.
func RecordDownloadError(dataset string) {
	DefaultMetrics.DownloadErrors.WithLabelValues(dataset).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
