package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordvolt/voltra/internal/clock"
)

type countingWorker struct {
	runs atomic.Int32
	ran  chan struct{}
	err  error
}

func (w *countingWorker) Name() string { return "counting" }

func (w *countingWorker) Interval() time.Duration { return time.Millisecond }

func (w *countingWorker) RunOnce(context.Context) error {
	w.runs.Add(1)
	select {
	case w.ran <- struct{}{}:
	default:
	}
	return w.err
}

func awaitRuns(t *testing.T, w *countingWorker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-w.ran:
		case <-time.After(5 * time.Second):
			t.Fatalf("worker did not reach run %d", i+1)
		}
	}
}

func TestRunnerLoopsUntilCancelled(t *testing.T) {
	w := &countingWorker{ran: make(chan struct{}, 16)}
	r := NewRunner(w, zap.NewNop(), clock.NewSystemClock())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	awaitRuns(t, w, 2)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	require.GreaterOrEqual(t, w.runs.Load(), int32(2))
}

func TestRunnerSurvivesWorkerErrors(t *testing.T) {
	w := &countingWorker{ran: make(chan struct{}, 16), err: errors.New("transient backend outage")}
	r := NewRunner(w, zap.NewNop(), clock.NewSystemClock())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Failing runs must not break the loop.
	awaitRuns(t, w, 3)
	cancel()
	<-done
	require.GreaterOrEqual(t, w.runs.Load(), int32(3))
}
