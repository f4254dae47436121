package scheduler

import (
	"context"

	shiftcloseservice "github.com/smallbiznis/shiftledger/internal/shiftclose/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(provideCloser),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

func provideCloser(svc *shiftcloseservice.Service) DayCloser { return svc }

// NewScheduler runs the loop for the app's lifetime. Stop waits for an
// in-flight close to finish or for the stop deadline.
func NewScheduler(lc fx.Lifecycle, cfg Config, sched *Scheduler) {
	if !cfg.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.StartStopHook(
		func() {
			go func() {
				defer close(done)
				sched.RunForever(ctx)
			}()
		},
		func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	))
}
