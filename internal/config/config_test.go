package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("API_URL", "")
	t.Setenv("USE_MOCK", "")
	t.Setenv("SESSION_STORE", "")

	cfg := Load()

	assert.Equal(t, "ntadmin", cfg.AppName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.AuthCookieSecure)
	assert.False(t, cfg.Directory.UseMock)
	assert.Equal(t, 30*time.Second, cfg.Directory.Timeout)
	assert.Equal(t, DefaultIdentityURL, cfg.Identity.IdentityURL)
	assert.Equal(t, DefaultTokenURL, cfg.Identity.TokenURL)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, 300*time.Millisecond, cfg.Session.GatePendingWait)
	assert.True(t, cfg.RateLimit.LoginEnabled)
	assert.Equal(t, 5, cfg.RateLimit.LoginBurst)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("API_URL", "https://api.example.com/api/")
	t.Setenv("FIREBASE_API_KEY", "  key-123 ")
	t.Setenv("SESSION_STORE", "REDIS")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("GATE_PENDING_WAIT", "1s")
	t.Setenv("DIRECTORY_TIMEOUT", "not-a-duration")

	cfg := Load()

	assert.True(t, cfg.AuthCookieSecure)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://api.example.com/api", cfg.Directory.BaseURL)
	assert.Equal(t, "key-123", cfg.Identity.APIKey)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, time.Second, cfg.Session.GatePendingWait)
	assert.Equal(t, 30*time.Second, cfg.Directory.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{
			name: "mock mode needs nothing",
			cfg:  Config{Directory: DirectoryConfig{UseMock: true}},
		},
		{
			name: "missing api url",
			cfg:  Config{Identity: IdentityConfig{APIKey: "k"}},
			want: ErrMissingAPIURL,
		},
		{
			name: "missing firebase key",
			cfg:  Config{Directory: DirectoryConfig{BaseURL: "http://api"}},
			want: ErrMissingFirebaseKey,
		},
		{
			name: "redis store without addr",
			cfg: Config{
				Directory: DirectoryConfig{UseMock: true},
				Session:   SessionConfig{Store: SessionStoreRedis},
			},
			want: ErrMissingRedisAddr,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDashboardHolderDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	holder, err := NewDashboardHolder(Config{DashboardConfigFile: filepath.Join(dir, "missing.yml")}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, DefaultDashboardSettings(), holder.Get())
}

func TestDashboardHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "dashboard.yml")
	content := "dashboard:\n  brandName: Nice Touch Admin\n  flashTTL: 5s\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	holder, err := NewDashboardHolder(Config{DashboardConfigFile: file}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "Nice Touch Admin", got.BrandName)
	assert.Equal(t, 5*time.Second, got.FlashTTL)
	assert.True(t, got.ShowSubscription)
}
