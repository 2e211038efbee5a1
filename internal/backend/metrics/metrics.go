package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the backend's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	tasksAdmitted     prometheus.Counter
	admissionFailures *prometheus.CounterVec
	sweepTransitions  *prometheus.CounterVec
	sweepErrors       prometheus.Counter
	selections        prometheus.Counter
	keysDelivered     prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: registry,
		tasksAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "healchain_tasks_admitted_total",
			Help: "Tasks admitted after successful escrow verification",
		}),
		admissionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healchain_admission_failures_total",
			Help: "Task admissions rejected, by failing check",
		}, []string{"check"}),
		sweepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healchain_sweep_transitions_total",
			Help: "Status transitions applied by the scheduler sweep",
		}, []string{"from", "to"}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "healchain_sweep_errors_total",
			Help: "Per-task reconciliation errors swallowed by the sweep",
		}),
		selections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "healchain_selections_total",
			Help: "Successful aggregator selections",
		}),
		keysDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "healchain_keys_delivered_total",
			Help: "Shared keys derived and delivered",
		}),
	}

	registry.MustRegister(
		c.tasksAdmitted,
		c.admissionFailures,
		c.sweepTransitions,
		c.sweepErrors,
		c.selections,
		c.keysDelivered,
	)
	return c
}

func (c *Collector) TaskAdmitted() {
	c.tasksAdmitted.Inc()
}

func (c *Collector) AdmissionFailure(check string) {
	c.admissionFailures.WithLabelValues(check).Inc()
}

func (c *Collector) SweepTransition(from, to string) {
	c.sweepTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) SweepError() {
	c.sweepErrors.Inc()
}

func (c *Collector) SelectionPerformed() {
	c.selections.Inc()
}

func (c *Collector) KeyDelivered() {
	c.keysDelivered.Inc()
}

// Handler serves the registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
