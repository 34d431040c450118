// Package metrics exposes ingestion counters to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/railcsv/internal/core"
)

const namespace = "railcsv"

// File statuses
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Recorder implements core.Recorder on its own registry.
type Recorder struct {
	registry  *prometheus.Registry
	files     *prometheus.CounterVec
	rows      *prometheus.CounterVec
	sentinels *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Ingested files by system and outcome.",
			},
			[]string{"system", "status"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Data lines by system and outcome (parsed or failed).",
			},
			[]string{"system", "outcome"},
		),
		sentinels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sentinels_total",
				Help:      "Measurements replaced by the NaN sentinel, by reason.",
			},
			[]string{"system", "reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "file_duration_seconds",
				Help:      "Time to process one file.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"system"},
		),
	}

	r.registry.MustRegister(
		r.files,
		r.rows,
		r.sentinels,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveFile records the outcome of one file. res may be nil when the file
// failed before processing started.
func (r *Recorder) ObserveFile(res *core.FileResult, err error) {
	system := "unknown"
	if res != nil && res.System != "" {
		system = string(res.System)
	}

	var fhe *core.FileHeaderError
	switch {
	case err == nil:
		r.files.WithLabelValues(system, StatusOK).Inc()
	case errors.As(err, &fhe):
		r.files.WithLabelValues(system, StatusRejected).Inc()
	default:
		r.files.WithLabelValues(system, StatusFailed).Inc()
	}

	if res == nil {
		return
	}

	r.rows.WithLabelValues(system, "parsed").Add(float64(res.Stats.Parsed))
	r.rows.WithLabelValues(system, "failed").Add(float64(res.Stats.Failed))
	for reason, n := range res.Stats.Sentinels {
		r.sentinels.WithLabelValues(system, string(reason)).Add(float64(n))
	}
	if res.Duration > 0 {
		r.duration.WithLabelValues(system).Observe(res.Duration.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
