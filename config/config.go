package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the runtime configuration read from the environment.
type Config struct {
	Env  string `mapstructure:"APP_ENV"` // development | production
	Port string `mapstructure:"PORT"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	MongoURI    string `mapstructure:"MONGODB_URI"`
	MongoName   string `mapstructure:"MONGODB_NAME"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	JWTSecret      string `mapstructure:"JWT_SECRET"`
	AdminSecretKey string `mapstructure:"ADMIN_SECRET_KEY"`
	AdminEmail     string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword  string `mapstructure:"ADMIN_PASSWORD"`

	AllowedOrigins     string        `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

var keys = []string{
	"APP_ENV", "PORT", "STORE_DRIVER", "MONGODB_URI", "MONGODB_NAME", "DATABASE_URL", "REDIS_URL",
	"JWT_SECRET", "ADMIN_SECRET_KEY", "ADMIN_EMAIL", "ADMIN_PASSWORD",
	"ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE", "REQUEST_TIMEOUT",
}

// Load reads .env.<APP_ENV> when present and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
	}
	file := ".env." + appEnv
	if err := godotenv.Load(file); err != nil {
		log.Warn().Str("file", file).Msg("no se pudo cargar el archivo de entorno, usando variables del sistema")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_NAME", "calmatevibes")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:4200,http://localhost:5173")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 300)
	v.SetDefault("REQUEST_TIMEOUT", "10s")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" || c.MongoName == "" {
			return fmt.Errorf("MONGODB_URI and MONGODB_NAME are required for the mongo driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		log.Warn().Msg("JWT_SECRET not set, using an insecure development secret")
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}
