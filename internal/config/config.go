package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Redis     RedisConfig      `mapstructure:"redis"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Quota     QuotaConfig      `mapstructure:"quota"`
	Dispatch  DispatchConfig   `mapstructure:"dispatch"`
	Providers []ProviderConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// AdminKeys guard the administrative quota-override route.
	AdminKeys []string `mapstructure:"admin_keys"`
	DBPath    string   `mapstructure:"db_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	// Per-user fixed window applied inside the orchestrator.
	PerUserLimit  int `mapstructure:"per_user_limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
	// Per-IP burst gate applied as HTTP middleware, in front of the
	// per-user window. The two gates are independent on purpose.
	IPRequestsPerSecond float64 `mapstructure:"ip_requests_per_second"`
	IPBurst             int     `mapstructure:"ip_burst"`
}

// QuotaConfig holds the default daily ceilings. Per-user overrides live in
// the quota_overrides table and are set through the admin route only.
type QuotaConfig struct {
	QuickDailyMax    int `mapstructure:"quick_daily_max"`
	DeepDailyMax     int `mapstructure:"deep_daily_max"`
	TokenDailyMax    int `mapstructure:"token_daily_max"`
	APICallsDailyMax int `mapstructure:"api_calls_daily_max"`
}

type DispatchConfig struct {
	InvokeTimeoutSeconds int `mapstructure:"invoke_timeout_seconds"`
	MaxAttempts          int `mapstructure:"max_attempts"`
	RetryBackoffMS       int `mapstructure:"retry_backoff_ms"`
	// Defaults maps a request class to the provider/model used when the
	// caller supplies no explicit selection.
	Defaults map[string]SelectionDefault `mapstructure:"defaults"`
}

type SelectionDefault struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// ProviderConfig is the static configuration for one upstream AI provider.
// APIKey may be an "ENV:VAR_NAME" reference resolved at load time so secrets
// never live in the config file itself.
type ProviderConfig struct {
	Name     string            `mapstructure:"name"`
	Type     string            `mapstructure:"type"` // adapter variant: openai, anthropic, google, ollama
	APIKey   string            `mapstructure:"api_key"`
	BaseURL  string            `mapstructure:"base_url"`
	Enabled  bool              `mapstructure:"enabled"`
	Priority int               `mapstructure:"priority"`
	Models   []string          `mapstructure:"models"`
	Config   map[string]string `mapstructure:"config"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.db_path", "optimizer.db")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("rate_limit.per_user_limit", 10)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("rate_limit.ip_requests_per_second", 25.0)
	v.SetDefault("rate_limit.ip_burst", 50)
	v.SetDefault("quota.quick_daily_max", 50)
	v.SetDefault("quota.deep_daily_max", 10)
	v.SetDefault("quota.token_daily_max", 200000)
	v.SetDefault("quota.api_calls_daily_max", 100)
	v.SetDefault("dispatch.invoke_timeout_seconds", 30)
	v.SetDefault("dispatch.max_attempts", 2)
	v.SetDefault("dispatch.retry_backoff_ms", 250)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve API key references
	for i, p := range cfg.Providers {
		if strings.HasPrefix(p.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(p.APIKey, "ENV:")
			val := os.Getenv(envVar)
			if val == "" {
				val = v.GetString(envVar)
			}
			cfg.Providers[i].APIKey = val
		}
	}

	return &cfg, nil
}
