package providers

import (
	"context"
	"testing"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/client"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/directory/mock"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity/firebase"
	"github.com/Cookseyyyyyy/ntadmindashboard/internal/identity/memory"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mockConfig() config.Config {
	return config.Config{
		Directory: config.DirectoryConfig{UseMock: true},
		Identity: config.IdentityConfig{
			MockAdminEmail:    "admin@example.com",
			MockAdminPassword: "admin123",
		},
	}
}

func TestMockModeSeedsAdminAccount(t *testing.T) {
	id := NewIdentity(mockConfig(), zap.NewNop())
	require.IsType(t, &memory.Directory{}, id.Provisioner)

	provider := id.Factory()
	user, err := provider.SignInWithPassword(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email())
}

func TestLiveModeUsesFirebase(t *testing.T) {
	cfg := config.Config{
		Directory: config.DirectoryConfig{BaseURL: "http://api.local"},
		Identity:  config.IdentityConfig{APIKey: "key"},
	}
	id := NewIdentity(cfg, zap.NewNop())
	assert.IsType(t, &firebase.Client{}, id.Provisioner)
}

func TestNewDirectorySelectsImplementation(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	dir := NewDirectory(DirectoryParams{Config: mockConfig(), Log: zap.NewNop(), GenID: node})
	assert.IsType(t, &mock.Directory{}, dir)

	live := NewDirectory(DirectoryParams{
		Config: config.Config{Directory: config.DirectoryConfig{BaseURL: "http://api.local"}},
		Log:    zap.NewNop(),
		GenID:  node,
	})
	assert.IsType(t, &client.Client{}, live)
}
