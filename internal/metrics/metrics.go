package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

const resultError = "error"

// ProbeMetrics records probe outcomes. It satisfies service.Recorder.
type ProbeMetrics struct {
	probes         *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	followFailures *prometheus.CounterVec
	runs           *prometheus.CounterVec
}

func NewProbeMetrics(reg prometheus.Registerer) (*ProbeMetrics, error) {
	m := &ProbeMetrics{
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uaprobe_probes_total",
				Help: "Probes executed, by engine and status family.",
			},
			[]string{"engine", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uaprobe_probe_duration_seconds",
				Help:    "Wall time of a probe including any redirect follow.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"engine"},
		),
		followFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uaprobe_redirect_follow_failures_total",
				Help: "Redirects that could not be followed after a successful first response.",
			},
			[]string{"engine"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uaprobe_runs_total",
				Help: "Probe runs handled by the agent, by result.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{m.probes, m.duration, m.followFailures, m.runs} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return m, nil
}

func (m *ProbeMetrics) ObserveOutcome(o domain.ProbeOutcome) {
	m.probes.WithLabelValues(o.Engine, resultLabel(o)).Inc()
	m.duration.WithLabelValues(o.Engine).Observe((time.Duration(o.DurationMS) * time.Millisecond).Seconds())
	if o.RedirectFollowFailed {
		m.followFailures.WithLabelValues(o.Engine).Inc()
	}
}

// ObserveRun counts one finished agent request; ok is false when the request
// was rejected before probing.
func (m *ProbeMetrics) ObserveRun(ok bool) {
	if ok {
		m.runs.WithLabelValues("ok").Inc()
		return
	}
	m.runs.WithLabelValues("rejected").Inc()
}

func resultLabel(o domain.ProbeOutcome) string {
	if o.Error != nil || o.InitialStatus == nil {
		return resultError
	}
	family := domain.StatusFamily(*o.InitialStatus)
	if family == 0 {
		return "other"
	}
	return fmt.Sprintf("%dxx", family)
}
