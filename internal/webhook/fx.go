package webhook

import (
	"github.com/smallbiznis/mockpay/internal/scheduler"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook",
	fx.Provide(NewDeliveryLog),
	fx.Provide(New),
	fx.Provide(func(d *Dispatcher) scheduler.Dispatcher { return d }),
)
