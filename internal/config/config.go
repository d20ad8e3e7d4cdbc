package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Permit    PermitConfig    `mapstructure:"permit"`
	Markets   []MarketConfig  `mapstructure:"markets"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Tenants   []TenantConfig  `mapstructure:"tenants"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`
}

type ChainConfig struct {
	// Base58 program id of the permit program.
	ProgramID string `mapstructure:"program_id"`
	// mainnet / testnet / devnet / localnet
	Cluster string `mapstructure:"cluster"`
}

type PermitConfig struct {
	// Authorizer pubkey used when a tenant has no session key.
	Authorizer string `mapstructure:"authorizer"`
	// Session private key (base58) for gateway-side signing. Optional:
	// without it the gateway only builds and inspects.
	SessionKey string `mapstructure:"session_key"`

	MaxFeeQuote   uint64 `mapstructure:"max_fee_quote"`
	ExpirySeconds int    `mapstructure:"expiry_seconds"`
	WindowK       uint8  `mapstructure:"window_k"`
}

type MarketConfig struct {
	Index         uint64 `mapstructure:"index"`
	Symbol        string `mapstructure:"symbol"`
	SzDecimals    int32  `mapstructure:"sz_decimals"`
	PriceDecimals int32  `mapstructure:"price_decimals"`
	MaxLeverage   uint32 `mapstructure:"max_leverage"`
}

type StreamConfig struct {
	// Websocket URL for market metadata updates. Empty disables the
	// stream; the registry then runs from static config only.
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type TenantConfig struct {
	ID         string  `mapstructure:"id"`
	Name       string  `mapstructure:"name"`
	APIKey     string  `mapstructure:"api_key"`
	SessionKey string  `mapstructure:"session_key"`
	RPS        float64 `mapstructure:"rps"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. PERMITGATE_CHAIN_PROGRAM_ID
	viper.SetEnvPrefix("permitgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("chain.cluster", "devnet")
	viper.SetDefault("permit.max_fee_quote", 5000)
	viper.SetDefault("permit.expiry_seconds", 60)
	viper.SetDefault("permit.window_k", 128)
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("database.audit_retention_days", 30)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("rate_limit.rps", 50)
	viper.SetDefault("rate_limit.burst", 100)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
