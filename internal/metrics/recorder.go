package metrics

import "time"

// Recorder defines observability hooks for build metrics. Implementations
// may forward to Prometheus etc. The NoopRecorder default keeps call sites
// free of nil checks.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncPluginProcessed(kind string, success bool)
	IncErrorCategory(category string)
	IncBuildOutcome(outcome string) // outcome: success|warning|failed
	SetWorkerCount(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are
// not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncPluginProcessed(string, bool)            {}
func (NoopRecorder) IncErrorCategory(string)                    {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) SetWorkerCount(int)                         {}
