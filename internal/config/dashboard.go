package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DashboardSettings are non-secret presentation settings that may change
// without a restart.
type DashboardSettings struct {
	BrandName        string        `mapstructure:"brandName"`
	FlashTTL         time.Duration `mapstructure:"flashTTL"`
	ShowSubscription bool          `mapstructure:"showSubscription"`
}

func DefaultDashboardSettings() DashboardSettings {
	return DashboardSettings{
		BrandName:        "User Management",
		FlashTTL:         3 * time.Second,
		ShowSubscription: true,
	}
}

type DashboardHolder struct {
	current atomic.Value // holds DashboardSettings
}

// NewDashboardHolder reads the dashboard settings file, falling back to
// defaults when it does not exist, and reloads it on change.
func NewDashboardHolder(cfg Config, logger *zap.Logger) (*DashboardHolder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	file := strings.TrimSpace(cfg.DashboardConfigFile)
	if file == "" {
		file = "dashboard.yml"
	}
	ext := strings.TrimPrefix(filepath.Ext(file), ".")
	if ext == "" {
		ext = "yml"
	}
	v.SetConfigName(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
	v.SetConfigType(ext)
	if dir := filepath.Dir(file); dir != "." {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/ntadmin")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NTADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDashboardSettings()
	v.SetDefault("dashboard.brandName", defaults.BrandName)
	v.SetDefault("dashboard.flashTTL", defaults.FlashTTL)
	v.SetDefault("dashboard.showSubscription", defaults.ShowSubscription)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	settings, err := decodeDashboard(v)
	if err != nil {
		return nil, err
	}

	holder := &DashboardHolder{}
	holder.current.Store(settings)

	if fileFound {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeDashboard(v)
			if err != nil {
				logger.Warn("dashboard settings reload failed", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			logger.Info("dashboard settings reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

// NewStaticDashboardHolder returns a holder that never reloads.
func NewStaticDashboardHolder(settings DashboardSettings) *DashboardHolder {
	holder := &DashboardHolder{}
	holder.current.Store(settings)
	return holder
}

func (h *DashboardHolder) Get() DashboardSettings {
	if h == nil {
		return DefaultDashboardSettings()
	}
	settings, ok := h.current.Load().(DashboardSettings)
	if !ok {
		return DefaultDashboardSettings()
	}
	return settings
}

func decodeDashboard(v *viper.Viper) (DashboardSettings, error) {
	var wrapper struct {
		Dashboard DashboardSettings `mapstructure:"dashboard"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return DashboardSettings{}, err
	}
	settings := wrapper.Dashboard
	if strings.TrimSpace(settings.BrandName) == "" {
		return DashboardSettings{}, errors.New("dashboard.brandName cannot be empty")
	}
	if settings.FlashTTL < 0 {
		return DashboardSettings{}, errors.New("dashboard.flashTTL cannot be negative")
	}
	return settings, nil
}
