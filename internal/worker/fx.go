package worker

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nordvolt/voltra/internal/clock"
)

// GroupTag is the fx value group workers register themselves under.
const GroupTag = `group:"workers"`

// Params collects every worker provided into the group.
type Params struct {
	fx.In

	Workers []Worker `group:"workers"`
	Log     *zap.Logger
	Clock   clock.Clock
}

// Module starts the registered workers on application start and stops them
// on shutdown.
var Module = fx.Module("worker",
	fx.Invoke(Start),
)

// Start launches one runner goroutine per worker under a shared errgroup.
func Start(lc fx.Lifecycle, p Params) {
	if len(p.Workers) == 0 {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())
			g, runCtx := errgroup.WithContext(runCtx)

			for _, w := range p.Workers {
				runner := NewRunner(w, p.Log, p.Clock)
				g.Go(func() error { return runner.Run(runCtx) })
				p.Log.Info("worker started", zap.String("job", w.Name()), zap.Duration("interval", w.Interval()))
			}

			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					cancel()
					done := make(chan error, 1)
					go func() { done <- g.Wait() }()
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-done:
						return nil
					}
				},
			})

			return nil
		},
	})
}

// Provide annotates a worker constructor into the workers group.
func Provide(constructor any) fx.Option {
	return fx.Provide(
		fx.Annotate(constructor, fx.As(new(Worker)), fx.ResultTags(GroupTag)),
	)
}
