package trellis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PhaseObserver func(phase Phase, duration time.Duration, err error)

type ModuleObserver func(module string, duration time.Duration, err error)

type PostInjectObserver func(component string, duration time.Duration, err error)

// lifecycleMetrics is nil when no registerer is configured; every method
// is a no-op on a nil receiver.
type lifecycleMetrics struct {
	phaseDuration      *prometheus.HistogramVec
	phaseFailures      *prometheus.CounterVec
	moduleRegistration *prometheus.CounterVec
	postInjectDuration *prometheus.HistogramVec
	components         prometheus.Gauge
}

func newLifecycleMetrics(reg prometheus.Registerer) *lifecycleMetrics {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)
	return &lifecycleMetrics{
		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trellis_phase_duration_seconds",
				Help:    "Time spent running the hooks of a lifecycle phase",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		phaseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trellis_phase_failures_total",
				Help: "Lifecycle phases that ended with an error",
			},
			[]string{"phase"},
		),
		moduleRegistration: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trellis_module_registrations_total",
				Help: "Modules registered, by module type and status",
			},
			[]string{"type", "status"},
		),
		postInjectDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trellis_post_inject_duration_seconds",
				Help:    "Time spent in component post-inject methods",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		components: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "trellis_components",
				Help: "Components registered in the DI container",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *lifecycleMetrics) observePhase(phase Phase, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase.String()).Observe(d.Seconds())
	if err != nil {
		m.phaseFailures.WithLabelValues(phase.String()).Inc()
	}
}

func (m *lifecycleMetrics) observeModule(t ModuleType, err error) {
	if m == nil {
		return
	}
	m.moduleRegistration.WithLabelValues(t.String(), status(err)).Inc()
}

func (m *lifecycleMetrics) observePostInject(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.postInjectDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

func (m *lifecycleMetrics) setComponents(n int) {
	if m == nil {
		return
	}
	m.components.Set(float64(n))
}

func (a *App) observePhase(phase Phase, d time.Duration, err error) {
	a.metrics.observePhase(phase, d, err)
	for _, o := range a.cfg.onPhase {
		o(phase, d, err)
	}
}

func (a *App) observeModule(key string, t ModuleType, d time.Duration, err error) {
	a.metrics.observeModule(t, err)
	for _, o := range a.cfg.onModule {
		o(key, d, err)
	}
}

func (a *App) observePostInject(component string, d time.Duration, err error) {
	a.metrics.observePostInject(d, err)
	for _, o := range a.cfg.onPostInject {
		o(component, d, err)
	}
}
