package main

import (
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/auth/session"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/cache"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/providers"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/ratelimit"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/server"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		cache.Module,

		providers.Module,
		session.Module,
		ratelimit.Module,
		dashboard.Module,

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
