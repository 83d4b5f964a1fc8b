package audit

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewRecorder),
	fx.Invoke(func(lc fx.Lifecycle, r *Recorder) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				r.Close()
				return nil
			},
		})
	}),
)
