// Package metrics exposes the receiver control plane's Prometheus
// collectors, grounded on the teacher's prometheus.go: a struct of
// promauto-registered collectors built once at startup and updated from
// the worker/event path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/sdrctl/internal/worker"
)

// Metrics holds every collector the server publishes.
type Metrics struct {
	eventsEmittedTotal   *prometheus.CounterVec
	taskLatencySeconds   prometheus.Histogram
	workerQueueDepth     prometheus.Gauge
	workerTasksExecuted  prometheus.Gauge
	rpcCallLatency       *prometheus.HistogramVec
	rpcCallsTotal        *prometheus.CounterVec
	activeSubscribers    prometheus.Gauge
	activeVfos           prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	return &Metrics{
		eventsEmittedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrctl_events_emitted_total",
			Help: "Total events emitted, by event kind.",
		}, []string{"kind"}),
		taskLatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdrctl_worker_task_latency_seconds",
			Help:    "Time a worker task spent running its body.",
			Buckets: prometheus.DefBuckets,
		}),
		workerQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrctl_worker_queue_depth",
			Help: "Number of tasks currently queued on the shared worker.",
		}),
		workerTasksExecuted: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrctl_worker_tasks_executed_total",
			Help: "Total tasks the worker has executed.",
		}),
		rpcCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdrctl_rpc_call_latency_seconds",
			Help:    "RPC handler latency, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rpcCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdrctl_rpc_calls_total",
			Help: "Total RPC calls, by method and result code.",
		}, []string{"method", "code"}),
		activeSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrctl_active_subscribers",
			Help: "Current number of connected event subscribers, receiver- and VFO-scope combined.",
		}),
		activeVfos: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdrctl_active_vfos",
			Help: "Current number of live VFOs.",
		}),
	}
}

// ObserveEvent records one emitted event of the given kind.
func (m *Metrics) ObserveEvent(kind string) { m.eventsEmittedTotal.WithLabelValues(kind).Inc() }

// ObserveTaskLatency records how long a worker task body took to run.
func (m *Metrics) ObserveTaskLatency(seconds float64) { m.taskLatencySeconds.Observe(seconds) }

// ObserveRPCCall records one RPC call's latency and outcome.
func (m *Metrics) ObserveRPCCall(method, code string, seconds float64) {
	m.rpcCallLatency.WithLabelValues(method).Observe(seconds)
	m.rpcCallsTotal.WithLabelValues(method, code).Inc()
}

// SetActiveSubscribers updates the active-subscriber gauge.
func (m *Metrics) SetActiveSubscribers(n int) { m.activeSubscribers.Set(float64(n)) }

// SetActiveVfos updates the active-VFO gauge.
func (m *Metrics) SetActiveVfos(n int) { m.activeVfos.Set(float64(n)) }

// PollWorker samples w's queue depth and executed-task counter. Intended
// to be called periodically (e.g. by a ticker in the server's admin
// loop), mirroring the teacher's periodic gauge refresh pattern.
func (m *Metrics) PollWorker(w *worker.Worker) {
	submitted, executed := w.Stats()
	m.workerQueueDepth.Set(float64(submitted - executed))
	m.workerTasksExecuted.Set(float64(executed))
}

// Handler returns the standard promhttp exposition handler.
func Handler() http.Handler { return promhttp.Handler() }
