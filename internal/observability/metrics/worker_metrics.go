package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	WorkerJobReasonDeadlineExceeded     = "deadline_exceeded"
	WorkerJobReasonDBLockTimeout        = "db_lock_timeout"
	WorkerJobReasonSerializationFailure = "serialization_failure"
	WorkerJobReasonUniqueViolation      = "unique_violation"
	WorkerJobReasonUnknown              = "unknown"
)

const (
	PipelineStageIngest   = "ingest"
	PipelineStageSettle   = "settle"
	PipelineStageDispatch = "dispatch"
	PipelineStageSpot     = "spot"
)

const (
	BacklogResourceInbox       = "inbox_pending"
	BacklogResourceOutbox      = "outbox_pending"
	BacklogResourceSettlements = "settlement_candidates"
)

// WorkerMetrics captures pipeline worker health signals.
type WorkerMetrics struct {
	jobRuns               *prometheus.CounterVec
	jobDuration           *prometheus.HistogramVec
	jobTimeouts           *prometheus.CounterVec
	jobErrors             *prometheus.CounterVec
	batchProcessed        *prometheus.CounterVec
	batchDeferred         *prometheus.CounterVec
	runLoopLag            prometheus.Observer
	backlog               *prometheus.GaugeVec
	settlementTransitions *prometheus.CounterVec
	pipelineErrors        *prometheus.CounterVec
	transitionCounts      map[string]map[string]prometheus.Counter
}

var (
	workerMetricsOnce sync.Once
	workerMetrics     *WorkerMetrics
)

// Worker returns the singleton worker metrics registry.
func Worker() *WorkerMetrics {
	return WorkerWithConfig(Config{})
}

// WorkerWithConfig returns the singleton worker metrics registry using config labels.
func WorkerWithConfig(cfg Config) *WorkerMetrics {
	workerMetricsOnce.Do(func() {
		workerMetrics = newWorkerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return workerMetrics
}

// ResetWorkerMetricsForTest resets the worker metrics singleton for tests.
func ResetWorkerMetricsForTest() {
	workerMetricsOnce = sync.Once{}
	workerMetrics = nil
}

func newWorkerMetrics(registerer prometheus.Registerer, cfg Config) *WorkerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "voltra"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "voltra_worker_job_runs_total",
		Help:        "Worker job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "voltra_worker_job_duration_seconds",
		Help:        "Worker job latency to protect settlement freshness.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300, 600, 1800},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "voltra_worker_job_timeouts_total",
		Help:        "Worker job timeouts that threaten settlement deadlines.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "voltra_worker_job_errors_total",
		Help:        "Worker job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	batchProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "voltra_worker_batch_processed_total",
		Help:        "Worker batch items processed to gauge pipeline throughput.",
		ConstLabels: constLabels,
	}, []string{"job", "resource"})
	batchDeferred := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "voltra_worker_batch_deferred_total",
		Help:        "Worker batch deferrals by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "voltra_worker_runloop_lag_seconds",
		Help:        "Worker run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	backlog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "voltra_worker_backlog",
		Help:        "Pending items per pipeline resource after the latest scan.",
		ConstLabels: constLabels,
	}, []string{"resource"})
	settlementTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "voltra_settlement_transition_total",
		Help:        "Settlement lifecycle transitions to validate invoicing health.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	pipelineErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "voltra_pipeline_error_total",
		Help:        "Pipeline errors by stage for faster incident isolation.",
		ConstLabels: constLabels,
	}, []string{"stage", "reason"})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobTimeouts,
		jobErrors,
		batchProcessed,
		batchDeferred,
		runLoopLag,
		backlog,
		settlementTransitions,
		pipelineErrors,
	)

	transitionCounts := map[string]map[string]prometheus.Counter{
		"Calculated": {
			"Invoiced": settlementTransitions.WithLabelValues("Calculated", "Invoiced"),
		},
		"Invoiced": {
			"Adjusted": settlementTransitions.WithLabelValues("Invoiced", "Adjusted"),
		},
	}

	return &WorkerMetrics{
		jobRuns:               jobRuns,
		jobDuration:           jobDuration,
		jobTimeouts:           jobTimeouts,
		jobErrors:             jobErrors,
		batchProcessed:        batchProcessed,
		batchDeferred:         batchDeferred,
		runLoopLag:            runLoopLag,
		backlog:               backlog,
		settlementTransitions: settlementTransitions,
		pipelineErrors:        pipelineErrors,
		transitionCounts:      transitionCounts,
	}
}

// IncJobRun increments the run counter for a worker job.
func (m *WorkerMetrics) IncJobRun(job string) {
	if m == nil || m.jobRuns == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// ObserveJobDuration records worker job latency in seconds.
func (m *WorkerMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil || m.jobDuration == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncJobTimeout increments the timeout counter for the worker job.
func (m *WorkerMetrics) IncJobTimeout(job string) {
	if m == nil || m.jobTimeouts == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the worker job error counter with classification.
func (m *WorkerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil || m.jobErrors == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyWorkerJobReason(err)).Inc()
}

// AddBatchProcessed increments the batch processed counter for a resource by count.
func (m *WorkerMetrics) AddBatchProcessed(job, resource string, count int) {
	if m == nil || count <= 0 || m.batchProcessed == nil {
		return
	}
	m.batchProcessed.WithLabelValues(job, resource).Add(float64(count))
}

// IncBatchDeferred increments the batch deferred counter for a job and reason.
func (m *WorkerMetrics) IncBatchDeferred(job, reason string) {
	if m == nil || m.batchDeferred == nil {
		return
	}
	m.batchDeferred.WithLabelValues(job, reason).Inc()
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *WorkerMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil || m.runLoopLag == nil {
		return
	}
	lag := duration
	if lag < 0 {
		lag = 0
	}
	m.runLoopLag.Observe(lag.Seconds())
}

// SetBacklog records the pending item count for a pipeline resource.
func (m *WorkerMetrics) SetBacklog(resource string, count int) {
	if m == nil || m.backlog == nil || count < 0 {
		return
	}
	m.backlog.WithLabelValues(resource).Set(float64(count))
}

// IncSettlementTransition increments settlement lifecycle transition counters.
func (m *WorkerMetrics) IncSettlementTransition(from, to string) {
	if m == nil {
		return
	}
	if toCounters, ok := m.transitionCounts[from]; ok {
		if counter, ok := toCounters[to]; ok {
			counter.Inc()
			return
		}
	}
	m.settlementTransitions.WithLabelValues(from, to).Inc()
}

// IncPipelineError increments pipeline errors by stage.
func (m *WorkerMetrics) IncPipelineError(stage string, err error) {
	if m == nil || err == nil || m.pipelineErrors == nil {
		return
	}
	m.pipelineErrors.WithLabelValues(stage, ClassifyWorkerJobReason(err)).Inc()
}

// ClassifyWorkerJobReason maps worker job errors to low-cardinality reasons.
func ClassifyWorkerJobReason(err error) string {
	if err == nil {
		return WorkerJobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WorkerJobReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return WorkerJobReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return WorkerJobReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return WorkerJobReasonUniqueViolation
	}
	return WorkerJobReasonUnknown
}

// IsWorkerErrorRetryable reports whether the worker error should be retried.
func IsWorkerErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return isDBError(err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
