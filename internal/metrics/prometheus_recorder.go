package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	plugins       *prom.CounterVec
	errorsByCat   *prom.CounterVec
	buildOutcome  *prom.CounterVec
	workerCount   prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "colldocs",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "colldocs",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.plugins = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "colldocs",
			Name:      "plugins_processed_total",
			Help:      "Plugins processed by kind and result",
		}, []string{"kind", "result"})
		pr.errorsByCat = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "colldocs",
			Name:      "build_errors_total",
			Help:      "Recorded build errors by category",
		}, []string{"category"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "colldocs",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.workerCount = prom.NewGauge(prom.GaugeOpts{
			Namespace: "colldocs",
			Name:      "build_workers",
			Help:      "Configured worker count for the last build",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.plugins, pr.errorsByCat, pr.buildOutcome, pr.workerCount)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPluginProcessed(kind string, success bool) {
	if p == nil || p.plugins == nil {
		return
	}
	result := "success"
	if !success {
		result = "failed"
	}
	p.plugins.WithLabelValues(kind, result).Inc()
}

func (p *PrometheusRecorder) IncErrorCategory(category string) {
	if p == nil || p.errorsByCat == nil {
		return
	}
	p.errorsByCat.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetWorkerCount(n int) {
	if p == nil || p.workerCount == nil {
		return
	}
	p.workerCount.Set(float64(n))
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for the
// provided registry (used by watch mode's --metrics-addr).
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
