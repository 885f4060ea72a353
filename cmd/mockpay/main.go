package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mockpay/internal/clock"
	"github.com/smallbiznis/mockpay/internal/config"
	"github.com/smallbiznis/mockpay/internal/invoice"
	"github.com/smallbiznis/mockpay/internal/observability"
	"github.com/smallbiznis/mockpay/internal/scheduler"
	"github.com/smallbiznis/mockpay/internal/server"
	"github.com/smallbiznis/mockpay/internal/webhook"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,

		// Functional Domains
		invoice.Module,
		scheduler.Module,
		webhook.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
