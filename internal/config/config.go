package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	QueryTimeoutMS    int      `mapstructure:"QUERY_TIMEOUT_MS"`
	DefaultBasePop    int      `mapstructure:"DEFAULT_BASE_POPULATION"`
	ArtifactsDir      string   `mapstructure:"ARTIFACTS_DIR"`
	AuthMode          string   `mapstructure:"AUTH_MODE"`
	JWTSigningKey     string   `mapstructure:"JWT_SIGNING_KEY"`
	LLMModel          string   `mapstructure:"LLM_MODEL"`
	OpenAIAPIKey      string   `mapstructure:"OPENAI_API_KEY"`
	RequestTimeoutSec int      `mapstructure:"REQUEST_TIMEOUT_SEC"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("QUERY_TIMEOUT_MS", 30000)
	v.SetDefault("DEFAULT_BASE_POPULATION", 500)
	v.SetDefault("ARTIFACTS_DIR", "artifacts")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from ENV
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("REQUEST_TIMEOUT_SEC", 60)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("QUERY_TIMEOUT_MS")
	v.BindEnv("DEFAULT_BASE_POPULATION")
	v.BindEnv("ARTIFACTS_DIR")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("LLM_MODEL")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("REQUEST_TIMEOUT_SEC")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: All requests are treated as authenticated analysts.")
		log.Println("WARNING: Set ENV=production and JWT_SIGNING_KEY for production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise the mode is inferred: ENV=development runs
// without auth, anything else requires signed bearer tokens.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// QueryTimeout returns the per-query execution deadline.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the whole-request deadline applied by middleware.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// LLMEnabled reports whether a model-backed generator can be constructed.
func (c *Config) LLMEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Validate checks that the configuration is safe to run. In non-development
// modes JWT_SIGNING_KEY must be set so that bearer tokens are actually
// verified before anyone can reach the raw SQL execution endpoint.
func (c *Config) Validate() error {
	mode := c.ResolvedAuthMode()
	if mode != "development" && mode != "jwt" {
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}
	if mode == "jwt" && c.JWTSigningKey == "" {
		return fmt.Errorf(
			"JWT_SIGNING_KEY is required when AUTH_MODE is \"jwt\" (current ENV=%q). "+
				"Refusing to expose the SQL execution endpoint without authentication", c.Env)
	}
	if c.QueryTimeoutMS <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT_MS must be positive, got %d", c.QueryTimeoutMS)
	}
	if c.DefaultBasePop <= 0 {
		return fmt.Errorf("DEFAULT_BASE_POPULATION must be positive, got %d", c.DefaultBasePop)
	}
	return nil
}
