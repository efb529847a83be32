// Package worker runs the pipeline loops (hub fetch, inbox routing,
// settlement, outbox dispatch, spot ingest) on fixed tickers under one
// lifecycle.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nordvolt/voltra/internal/clock"
	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
)

// Worker is a polling job. RunOnce processes at most one batch; the runner
// calls it on every tick and once at startup.
type Worker interface {
	Name() string
	Interval() time.Duration
	RunOnce(ctx context.Context) error
}

// Runner drives a single worker until the context is cancelled.
type Runner struct {
	w     Worker
	log   *zap.Logger
	clock clock.Clock
}

// NewRunner wraps a worker with logging and loop metrics.
func NewRunner(w Worker, log *zap.Logger, clk clock.Clock) *Runner {
	return &Runner{
		w:     w,
		log:   log.Named("worker").With(zap.String("job", w.Name())),
		clock: clk,
	}
}

// Run executes the worker loop. Errors from RunOnce are logged and the loop
// keeps going; only context cancellation stops it.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.w.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	nextRun := r.clock.Now().Add(interval)
	workerMetrics := obsmetrics.Worker()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			workerMetrics.ObserveRunLoopLag(runLag)
		}
		r.runOnce(ctx, workerMetrics)
		nextRun = nextRun.Add(interval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, workerMetrics *obsmetrics.WorkerMetrics) {
	start := r.clock.Now()
	workerMetrics.IncJobRun(r.w.Name())

	err := r.w.RunOnce(ctx)
	workerMetrics.ObserveJobDuration(r.w.Name(), r.clock.Now().Sub(start))
	if err == nil || ctx.Err() != nil {
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		workerMetrics.IncJobTimeout(r.w.Name())
	}
	workerMetrics.IncJobError(r.w.Name(), err)
	r.log.Warn("worker run failed",
		zap.Error(err),
		zap.Bool("retryable", obsmetrics.IsWorkerErrorRetryable(err)),
	)
}
