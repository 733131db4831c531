package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AuthCookieSecure bool

	OTLPEndpoint string

	Directory DirectoryConfig
	Identity  IdentityConfig
	Session   SessionConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig

	DashboardConfigFile string
}

// DirectoryConfig points at the user-management API.
type DirectoryConfig struct {
	BaseURL string
	UseMock bool
	Timeout time.Duration
}

// IdentityConfig configures the Firebase Authentication REST endpoints.
type IdentityConfig struct {
	APIKey      string
	AuthDomain  string
	ProjectID   string
	IdentityURL string
	TokenURL    string

	MockAdminEmail    string
	MockAdminPassword string
}

type SessionConfig struct {
	IdleTimeout       time.Duration
	Store             string
	GatePendingWait   time.Duration
	RequireAdminClaim bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	LoginEnabled   bool
	LoginPerMinute float64
	LoginBurst     int
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
)

var (
	ErrMissingAPIURL      = errors.New("API_URL is required unless USE_MOCK is enabled")
	ErrMissingFirebaseKey = errors.New("FIREBASE_API_KEY is required unless USE_MOCK is enabled")
	ErrMissingRedisAddr   = errors.New("REDIS_ADDR is required when SESSION_STORE=redis")
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:          getenv("APP_SERVICE", "ntadmin"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		AuthCookieSecure: authCookieSecure,
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),
		Directory: DirectoryConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(getenv("API_URL", "")), "/"),
			UseMock: getenvBool("USE_MOCK", false),
			Timeout: getenvDuration("DIRECTORY_TIMEOUT", 30*time.Second),
		},
		Identity: IdentityConfig{
			APIKey:            strings.TrimSpace(getenv("FIREBASE_API_KEY", "")),
			AuthDomain:        strings.TrimSpace(getenv("FIREBASE_AUTH_DOMAIN", "")),
			ProjectID:         strings.TrimSpace(getenv("FIREBASE_PROJECT_ID", "")),
			IdentityURL:       strings.TrimRight(getenv("FIREBASE_IDENTITY_URL", DefaultIdentityURL), "/"),
			TokenURL:          getenv("FIREBASE_TOKEN_URL", DefaultTokenURL),
			MockAdminEmail:    getenv("MOCK_ADMIN_EMAIL", "admin@example.com"),
			MockAdminPassword: getenv("MOCK_ADMIN_PASSWORD", "admin123"),
		},
		Session: SessionConfig{
			IdleTimeout:       getenvDuration("SESSION_IDLE_TIMEOUT", 12*time.Hour),
			Store:             normalizeStore(getenv("SESSION_STORE", SessionStoreMemory)),
			GatePendingWait:   getenvDuration("GATE_PENDING_WAIT", 300*time.Millisecond),
			RequireAdminClaim: getenvBool("REQUIRE_ADMIN_CLAIM", false),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			LoginEnabled:   getenvBool("LOGIN_RATE_LIMIT_ENABLED", true),
			LoginPerMinute: getenvFloat("LOGIN_RATE_PER_MINUTE", 5),
			LoginBurst:     getenvInt("LOGIN_RATE_BURST", 5),
		},
		DashboardConfigFile: getenv("DASHBOARD_CONFIG", "dashboard.yml"),
	}
}

// Validate reports settings that would leave the dashboard unable to reach
// its collaborators.
func (c Config) Validate() error {
	if !c.Directory.UseMock {
		if c.Directory.BaseURL == "" {
			return ErrMissingAPIURL
		}
		if c.Identity.APIKey == "" {
			return ErrMissingFirebaseKey
		}
	}
	if c.Session.Store == SessionStoreRedis && c.Redis.Addr == "" {
		return ErrMissingRedisAddr
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SessionStoreRedis:
		return SessionStoreRedis
	default:
		return SessionStoreMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
