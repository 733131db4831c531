package dashboard

import (
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(service.New),
	fx.Provide(service.NewFlashes),
)
