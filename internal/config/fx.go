package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewDashboardHolder),
	fx.Invoke(validate),
)

func validate(cfg Config) error {
	return cfg.Validate()
}
