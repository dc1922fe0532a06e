// Package jobmetrics instruments background job runs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Refresh scopes for the instructor stats counter.
const (
	ScopeInstructor = "instructor"
	ScopeAll        = "all"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	refreshed *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or against the
// default Prometheus registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = register(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return register(registerer)
}

// Run measures a single job execution. Exactly one of Done or Skip should be
// called per run.
type Run struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Start begins measuring a run of task.
func (m *Metrics) Start(task string) *Run {
	return &Run{metrics: m, task: task, start: time.Now()}
}

// Done records the run as a success or failure and returns err unchanged.
func (r *Run) Done(err error) error {
	if err != nil {
		r.record(OutcomeFailure)
		if r.metrics != nil {
			r.metrics.failures.WithLabelValues(r.task).Inc()
		}
		return err
	}
	r.record(OutcomeSuccess)
	return nil
}

// Skip records a run that was dropped without retry, e.g. for a bad payload.
func (r *Run) Skip() {
	r.record(OutcomeSkipped)
}

func (r *Run) record(outcome string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.runs.WithLabelValues(r.task, outcome).Inc()
	r.metrics.duration.WithLabelValues(r.task).Observe(time.Since(r.start).Seconds())
}

// InstructorsRefreshed counts instructor rows whose review stats were rewritten.
func (m *Metrics) InstructorsRefreshed(scope string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.refreshed.WithLabelValues(scope).Add(float64(count))
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usersvc_jobs_total",
			Help: "Job executions by task type and outcome.",
		}, []string{"task", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usersvc_jobs_failures_total",
			Help: "Job executions that returned an error and will be retried.",
		}, []string{"task"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "usersvc_job_duration_seconds",
			Help:    "Job execution time in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120},
		}, []string{"task"}),
		refreshed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usersvc_instructor_stats_refreshed_total",
			Help: "Instructor rows whose review counters were recomputed, by refresh scope.",
		}, []string{"scope"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.refreshed)
	return m
}
