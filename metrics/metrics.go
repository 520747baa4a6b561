// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeAuthRequired = "auth_required"
	OutcomeFailed       = "failed"
	OutcomeBusy         = "busy"
)

type Metrics struct {
	registry *prometheus.Registry

	GalleryViews    *prometheus.CounterVec
	GalleryResults  prometheus.Histogram
	Submissions     *prometheus.CounterVec
	SubmitDuration  prometheus.Histogram
	UploadedBytes   *prometheus.CounterVec
	FeedbackEntries *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GalleryViews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectdal",
			Name:      "gallery_views_total",
			Help:      "Gallery views computed, by sort mode and whether filters were active.",
		}, []string{"sort", "filtered"}),
		GalleryResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "projectdal",
			Name:      "gallery_results",
			Help:      "Number of projects in a computed gallery view.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectdal",
			Name:      "project_submissions_total",
			Help:      "Project submissions by outcome.",
		}, []string{"outcome"}),
		SubmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "projectdal",
			Name:      "project_submit_duration_seconds",
			Help:      "Time spent uploading and inserting a project.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		UploadedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectdal",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes sent to object storage, by bucket.",
		}, []string{"bucket"}),
		FeedbackEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectdal",
			Name:      "feedback_total",
			Help:      "Feedback submissions by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
