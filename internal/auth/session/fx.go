package session

import (
	"context"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.session",
	fx.Provide(NewCookies),
	fx.Provide(newStore),
	fx.Provide(newRegistry),
)

const sweepInterval = time.Minute

type storeParams struct {
	fx.In

	Config config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *zap.Logger
}

func newStore(p storeParams) (Store, error) {
	if p.Config.Session.Store == config.SessionStoreRedis && p.Redis != nil {
		return NewRedisStore(p.Redis, defaultKeyPrefix)
	}
	if p.Config.Session.Store == config.SessionStoreRedis {
		p.Logger.Warn("redis session store requested without a redis client; using memory")
	}
	return NewMemoryStore(), nil
}

func newRegistry(lc fx.Lifecycle, cfg config.Config, factory identity.Factory, store Store, cookies *Cookies, log *zap.Logger) *Registry {
	registry := NewRegistry(RegistryParams{
		Factory:     factory,
		Store:       store,
		Cookies:     cookies,
		IdleTimeout: cfg.Session.IdleTimeout,
		Logger:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				registry.Run(ctx, sweepInterval)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			registry.Close()
			return nil
		},
	})
	return registry
}
