// Package observability provides Prometheus metrics for the application.
package observability

import (
	"fmt"
	"time"

	"mediadl/internal/consts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	DownloadsTotal   *prometheus.CounterVec
	DownloadDuration *prometheus.HistogramVec
	LastRunTimestamp prometheus.Gauge
}

// New creates all application metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.AppName,
			Subsystem: "downloads",
			Name:      "total",
			Help:      "Total number of download requests by media type and outcome",
		}, []string{"media_type", "outcome"}),
		DownloadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: consts.AppName,
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of download duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"media_type"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: consts.AppName,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}),
	}
}

// Registry returns the registry all metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDownload records a finished download request.
func (m *Metrics) RecordDownload(mediaType, outcome string, duration time.Duration) {
	m.DownloadsTotal.WithLabelValues(mediaType, outcome).Inc()
	m.DownloadDuration.WithLabelValues(mediaType).Observe(duration.Seconds())
	m.LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// The file is replaced atomically, as the node_exporter textfile collector expects.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
