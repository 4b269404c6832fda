package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Backend selects the storage collaborator adapter.
const (
	BackendRPC   = "rpc"
	BackendMongo = "mongo"
)

// Theme baseline policies: what a background color change does to a dirty draft.
const (
	ThemePreserve = "preserve"
	ThemeDiscard  = "discard"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`
	Backend   string `env:"BACKEND,    default=mongo"`
	SiteURL   string `env:"SITE_URL,   default=http://localhost:5173"`

	WorkspaceIdleTTL time.Duration `env:"WORKSPACE_IDLE_TTL,    default=30m"`
	ThemePolicy      string        `env:"THEME_BASELINE_POLICY, default=preserve"`

	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RPC       RPCConfig
	Stripe    StripeConfig
	Upgrade   UpgradeConfig
	RateLimit RateLimitConfig
}

type AuthConfig struct {
	// VerificationKey is the PEM encoded ES256 public key of the auth provider.
	VerificationKey string `env:"AUTH_VERIFICATION_KEY"`
	// HMACSecret enables HS256 tokens, for local development only.
	HMACSecret string `env:"AUTH_HMAC_SECRET"`
	AppID      string `env:"AUTH_APP_ID"`
	Issuer     string `env:"AUTH_ISSUER, default=privy.io"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=easyref"`
}

type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR,              default=localhost:6379"`
	Password        string        `env:"REDIS_PASSWORD"`
	DB              int           `env:"REDIS_DB,                default=0"`
	ProfileCacheTTL time.Duration `env:"REDIS_PROFILE_CACHE_TTL, default=60s"`
	WebhookDedupTTL time.Duration `env:"REDIS_WEBHOOK_DEDUP_TTL, default=72h"`
}

type RPCConfig struct {
	URL        string        `env:"RPC_URL"`
	ServiceKey string        `env:"RPC_SERVICE_KEY"`
	Timeout    time.Duration `env:"RPC_TIMEOUT, default=10s"`
}

type StripeConfig struct {
	SecretKey      string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	MonthlyPriceID string `env:"STRIPE_PREMIUM_MONTHLY_PRICE_ID"`
	YearlyPriceID  string `env:"STRIPE_PREMIUM_YEARLY_PRICE_ID"`
	Workers        int    `env:"STRIPE_WEBHOOK_WORKERS, default=4"`
}

type UpgradeConfig struct {
	Attempts int           `env:"UPGRADE_POLL_ATTEMPTS, default=10"`
	Interval time.Duration `env:"UPGRADE_POLL_INTERVAL, default=1s"`
}

type RateLimitConfig struct {
	PerMinute int           `env:"RATE_LIMIT_PER_MINUTE, default=120"`
	Burst     int           `env:"RATE_LIMIT_BURST,      default=20"`
	IdleTTL   time.Duration `env:"RATE_LIMIT_IDLE_TTL,   default=10m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMongo:
	case BackendRPC:
		if c.RPC.URL == "" || c.RPC.ServiceKey == "" {
			return fmt.Errorf("config: RPC_URL and RPC_SERVICE_KEY are required for the rpc backend")
		}
	default:
		return fmt.Errorf("config: unknown BACKEND %q", c.Backend)
	}
	if c.ThemePolicy != ThemePreserve && c.ThemePolicy != ThemeDiscard {
		return fmt.Errorf("config: THEME_BASELINE_POLICY must be %q or %q", ThemePreserve, ThemeDiscard)
	}
	if c.Auth.VerificationKey == "" && c.Auth.HMACSecret == "" {
		return fmt.Errorf("config: AUTH_VERIFICATION_KEY or AUTH_HMAC_SECRET is required")
	}
	return nil
}
