package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	JWTSecret            string        `mapstructure:"JWT_SECRET"`
	ClearinghouseBaseURL string        `mapstructure:"CLEARINGHOUSE_BASE_URL"`
	ClearinghouseAPIKey  string        `mapstructure:"CLEARINGHOUSE_API_KEY"`
	ClearinghouseTimeout time.Duration `mapstructure:"CLEARINGHOUSE_TIMEOUT"`
	AdvisoryURL          string        `mapstructure:"ADVISORY_URL"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
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
	v.SetDefault("CLEARINGHOUSE_TIMEOUT", "30s")
	v.SetDefault("REQUEST_TIMEOUT", "60s")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CLEARINGHOUSE_BASE_URL")
	v.BindEnv("CLEARINGHOUSE_API_KEY")
	v.BindEnv("CLEARINGHOUSE_TIMEOUT")
	v.BindEnv("ADVISORY_URL")
	v.BindEnv("REQUEST_TIMEOUT")

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
	if cfg.ClearinghouseBaseURL == "" {
		return nil, fmt.Errorf("CLEARINGHOUSE_BASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests are not authenticated. Do NOT use in production.")
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

// Validate checks that the configuration is safe to run. Outside development
// mode a JWT secret must be set so that bearer authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set when ENV=%q; refusing to start without authentication", c.Env)
	}
	if c.ClearinghouseTimeout <= 0 {
		return fmt.Errorf("CLEARINGHOUSE_TIMEOUT must be positive, got %s", c.ClearinghouseTimeout)
	}
	return nil
}
