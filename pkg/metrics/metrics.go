// Package metrics holds the Prometheus collectors updated by the download
// engine. Nothing is exported until Register is called.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "mcfetch"

// Result labels for DownloadsTotal.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

var (
	DownloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "downloads_total",
		Help:      "Total file downloads by result.",
	}, []string{"result"})

	DownloadedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "downloaded_bytes_total",
		Help:      "Total bytes written to installed files.",
	})

	RetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "retries_total",
		Help:      "Total download attempts that were retried.",
	})

	ActiveTransfers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "active_transfers",
		Help:      "Number of transfers currently in flight.",
	})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second.",
	})

	DownloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "download_duration_seconds",
		Help:      "Duration of single file downloads including retries.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		DownloadsTotal,
		DownloadedBytesTotal,
		RetriesTotal,
		ActiveTransfers,
		DownloadSpeedBytes,
		DownloadDuration,
	)
}
