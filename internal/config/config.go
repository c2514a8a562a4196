package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	StoreDriver           string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	MongoURI              string        `mapstructure:"MONGODB_URI"`
	MongoDatabase         string        `mapstructure:"MONGODB_DATABASE"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	LayoutCacheTTL        time.Duration `mapstructure:"LAYOUT_CACHE_TTL"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	GeminiAPIKey          string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel           string        `mapstructure:"GEMINI_MODEL"`
	MedicationContextPath string        `mapstructure:"MEDICATION_CONTEXT_PATH"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ExtractTimeout        time.Duration `mapstructure:"EXTRACT_TIMEOUT"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
	AudioBodyLimit        string        `mapstructure:"AUDIO_BODY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MONGODB_DATABASE", "clinicnotes")
	v.SetDefault("LAYOUT_CACHE_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-pro-preview-06-05")
	v.SetDefault("MEDICATION_CONTEXT_PATH", "./medication_context_data.json")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("EXTRACT_TIMEOUT", "300s")
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("AUDIO_BODY_LIMIT", "32M")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"MONGODB_URI", "MONGODB_DATABASE", "REDIS_URL", "LAYOUT_CACHE_TTL", "CORS_ORIGINS",
		"AUTH_SIGNING_KEY", "GEMINI_API_KEY", "GEMINI_MODEL", "MEDICATION_CONTEXT_PATH",
		"REQUEST_TIMEOUT", "EXTRACT_TIMEOUT", "BODY_LIMIT", "AUDIO_BODY_LIMIT",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) UsesMongo() bool {
	return c.StoreDriver == DriverMongo
}

// Validate checks the driver-specific connection settings. Outside development
// an AUTH_SIGNING_KEY is required so the admin routes are never left open.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER is %q", DriverMongo)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMongo, c.StoreDriver)
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.RequestTimeout <= 0 || c.ExtractTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT and EXTRACT_TIMEOUT must be positive")
	}
	return nil
}
