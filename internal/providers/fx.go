// Package providers selects the identity provider and user directory
// implementations for the configured mode.
package providers

import (
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/client"
	directorydomain "github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/domain"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/mock"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity/firebase"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity/memory"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers",
	fx.Provide(NewIdentity),
	fx.Provide(NewDirectory),
)

type Identity struct {
	fx.Out

	Factory     identity.Factory
	Provisioner identity.Provisioner
}

// NewIdentity returns the in-process provider in mock mode, seeded with the
// configured admin account, and Firebase otherwise.
func NewIdentity(cfg config.Config, log *zap.Logger) Identity {
	if cfg.Directory.UseMock {
		accounts := memory.NewDirectory()
		accounts.AddAccount(cfg.Identity.MockAdminEmail, cfg.Identity.MockAdminPassword, true)
		log.Info("mock identity provider enabled", zap.String("admin_email", cfg.Identity.MockAdminEmail))
		return Identity{Factory: accounts.Factory(), Provisioner: accounts}
	}

	fb := firebase.New(cfg, log)
	return Identity{Factory: fb.Factory(), Provisioner: fb}
}

type DirectoryParams struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	GenID    *snowflake.Node
	Observer *metrics.DirectoryObserver `optional:"true"`
}

func NewDirectory(p DirectoryParams) directorydomain.Directory {
	if p.Config.Directory.UseMock {
		p.Log.Info("mock user directory enabled")
		return mock.New(p.GenID)
	}

	params := client.Params{
		BaseURL: p.Config.Directory.BaseURL,
		Timeout: p.Config.Directory.Timeout,
		Logger:  p.Log,
	}
	if p.Observer != nil {
		params.Observer = p.Observer
	}
	return client.New(params)
}
