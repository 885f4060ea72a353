package invoice

import (
	"github.com/smallbiznis/mockpay/internal/idempotency"
	"github.com/smallbiznis/mockpay/internal/invoice/service"
	"github.com/smallbiznis/mockpay/internal/invoice/store"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(store.New),
	fx.Provide(idempotency.New),
	fx.Provide(service.New),
)
