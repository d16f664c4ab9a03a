// Package metrics collects Prometheus metrics for the job server: job
// throughput and failure counters, a latency histogram, and gauges for
// queue depth and pool size, served from /metrics by internal/httpapi.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the process's metric instruments. It must be registered
// exactly once with a prometheus.Registerer.
type Collector struct {
	jobsSubmitted prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter

	jobDuration prometheus.Histogram

	jobsPending    prometheus.Gauge
	jobsRunning    prometheus.Gauge
	workerPoolSize prometheus.Gauge
}

// NewCollector builds a Collector and registers its instruments with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Total number of jobs accepted by ingress.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs a worker finished without error.",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total number of jobs a worker finished with a computation error.",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Time from dequeue to result-store write for one job.",
			Buckets: prometheus.DefBuckets,
		}),
		jobsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobs_pending",
			Help: "Current number of jobs waiting in the queue.",
		}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobs_running",
			Help: "Current number of jobs being executed by a worker.",
		}),
		workerPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worker_pool_size",
			Help: "Configured number of worker goroutines.",
		}),
	}

	reg.MustRegister(
		c.jobsSubmitted,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobDuration,
		c.jobsPending,
		c.jobsRunning,
		c.workerPoolSize,
	)

	return c
}

// RecordSubmitted records one job accepted by ingress.
func (c *Collector) RecordSubmitted() {
	c.jobsSubmitted.Inc()
}

// RecordCompleted records one job finished successfully, with the time it
// spent executing.
func (c *Collector) RecordCompleted(durationSeconds float64) {
	c.jobsCompleted.Inc()
	c.jobDuration.Observe(durationSeconds)
}

// RecordFailed records one job that finished with a computation error,
// with the time it spent executing.
func (c *Collector) RecordFailed(durationSeconds float64) {
	c.jobsFailed.Inc()
	c.jobDuration.Observe(durationSeconds)
}

// SetPoolSize records the configured worker pool size. It is set once at
// startup.
func (c *Collector) SetPoolSize(size int) {
	c.workerPoolSize.Set(float64(size))
}

// SetQueueDepth records the current number of jobs waiting to be picked up
// by a worker.
func (c *Collector) SetQueueDepth(pending int) {
	c.jobsPending.Set(float64(pending))
}

// IncRunning records one more job entering execution. Called by a worker
// immediately before it starts computing, it uses the gauge's native Inc so
// concurrent workers never race on a read-modify-write of an absolute
// value.
func (c *Collector) IncRunning() {
	c.jobsRunning.Inc()
}

// DecRunning records one job leaving execution, pairing every IncRunning.
func (c *Collector) DecRunning() {
	c.jobsRunning.Dec()
}
