package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warden/internal/analytics"
	"github.com/smallbiznis/warden/internal/billing"
	"github.com/smallbiznis/warden/internal/clock"
	"github.com/smallbiznis/warden/internal/config"
	"github.com/smallbiznis/warden/internal/license"
	"github.com/smallbiznis/warden/internal/migration"
	"github.com/smallbiznis/warden/internal/observability"
	"github.com/smallbiznis/warden/internal/ratelimit"
	"github.com/smallbiznis/warden/internal/scheduler"
	"github.com/smallbiznis/warden/internal/security"
	"github.com/smallbiznis/warden/internal/server"
	"github.com/smallbiznis/warden/internal/webhook"
	"github.com/smallbiznis/warden/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		license.Module,
		security.Module,
		ratelimit.Module,
		analytics.Module,
		webhook.Module,
		billing.Module,
		scheduler.Module,

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
