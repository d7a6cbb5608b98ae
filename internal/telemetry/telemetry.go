// Package telemetry exposes scheduler-internal state as Prometheus
// metrics: an observability surface analogous to the teacher's own
// Prometheus remote-write output, scoped here to the scheduler's own
// state rather than HTTP load-test metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hetsched"

// Registry bundles the scheduler's metrics on a private prometheus.Registry
// so tests can assert on it without colliding with the global default
// registry.
type Registry struct {
	reg *prometheus.Registry

	makespan       prometheus.Gauge
	staticEnergy   prometheus.Gauge
	dynamicEnergy  prometheus.Gauge
	totalEnergy    prometheus.Gauge
	activeTasks    prometheus.Gauge
	invocations    *prometheus.CounterVec
	interrupts     *prometheus.CounterVec
}

// New builds a Registry with every metric registered and at zero.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		makespan: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "makespan_seconds",
			Help:      "Makespan of the most recently computed schedule.",
		}),
		staticEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "static_energy_joules",
			Help:      "Static (idle-power) energy of the most recently computed schedule.",
		}),
		dynamicEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dynamic_energy_joules",
			Help:      "Dynamic (compute) energy of the most recently computed schedule.",
		}),
		totalEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_energy_joules",
			Help:      "Total energy (static + dynamic) of the most recently computed schedule.",
		}),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tasks",
			Help:      "Number of tasks present in the most recent compute() call.",
		}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "algorithm_invocations_total",
			Help:      "Number of times each mapping algorithm's compute() was called.",
		}, []string{"algorithm"}),
		interrupts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "algorithm_interrupts_total",
			Help:      "Number of times each mapping algorithm's compute() observed the interrupt flag.",
		}, []string{"algorithm"}),
	}

	r.reg.MustRegister(r.makespan, r.staticEnergy, r.dynamicEnergy,
		r.totalEnergy, r.activeTasks, r.invocations, r.interrupts)
	return r
}

// ObserveSchedule records one computed schedule's summary statistics.
func (r *Registry) ObserveSchedule(makespan, staticEnergy, dynamicEnergy float64, activeTasks int) {
	r.makespan.Set(makespan)
	r.staticEnergy.Set(staticEnergy)
	r.dynamicEnergy.Set(dynamicEnergy)
	r.totalEnergy.Set(staticEnergy + dynamicEnergy)
	r.activeTasks.Set(float64(activeTasks))
}

// RecordInvocation increments the invocation counter for algorithm.
func (r *Registry) RecordInvocation(algorithm string) {
	r.invocations.WithLabelValues(algorithm).Inc()
}

// RecordInterrupt increments the interrupt counter for algorithm.
func (r *Registry) RecordInterrupt(algorithm string) {
	r.interrupts.WithLabelValues(algorithm).Inc()
}

// Handler returns the http.Handler serving this registry's metrics in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
