package scheduler

import (
	"context"

	"github.com/smallbiznis/mockpay/internal/invoice/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Provide(func(e *Emitter) domain.StatusEmitter { return e }),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, e *Emitter) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
