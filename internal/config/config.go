package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validStorageDrivers = []string{"json", "mysql", "postgres", "sqlite"}
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort   int
	AppEnv       string
	LogLevel     string
	ClientOrigin string
	JWTSecret    string
	BcryptCost   int

	StorageDriver string
	DataDir       string
	DatabaseURL   string
	ForceDBSSL    string
	MySQLDSN      string
	SQLitePath    string

	RedisAddr string
	RedisDB   int
	RedisPass string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// TrustProxyHeaders takes the client IP from X-Forwarded-For when the peer is a private proxy.
	TrustProxyHeaders bool

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string
	ResetURL  string

	SwaggerHost string
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DSN returns the connection string for the configured relational driver.
func (c *Config) DSN() string {
	switch c.StorageDriver {
	case "mysql":
		return c.MySQLDSN
	case "postgres":
		return c.DatabaseURL
	case "sqlite":
		return c.SQLitePath
	default:
		return ""
	}
}

// Load builds Config from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CLIENT_ORIGIN", "http://localhost:5500")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("STORAGE_DRIVER", "json")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("SQLITE_PATH", "data/users.db")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("EMAIL_FROM", "no-reply@tanrid.com")
	v.SetDefault("RESET_URL", "https://tanrid.com/reset")
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	port := v.GetInt("PORT")
	if port == 0 {
		port = v.GetInt("SERVER_PORT")
	}
	if port == 0 && v.GetString("PORT") == "" && v.GetString("SERVER_PORT") == "" {
		port = 4000
	}

	cfg := &Config{
		ServerPort:   port,
		AppEnv:       v.GetString("APP_ENV"),
		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
		ClientOrigin: v.GetString("CLIENT_ORIGIN"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		BcryptCost:   v.GetInt("BCRYPT_COST"),

		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DataDir:       v.GetString("DATA_DIR"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		ForceDBSSL:    v.GetString("FORCE_DB_SSL"),
		MySQLDSN:      v.GetString("MYSQL_DSN"),
		SQLitePath:    v.GetString("SQLITE_PATH"),

		RedisAddr: v.GetString("REDIS_ADDR"),
		RedisDB:   v.GetInt("REDIS_DB"),
		RedisPass: v.GetString("REDIS_PASSWORD"),

		RateLimitEnabled:  v.GetBool("RATE_LIMIT_ENABLED"),
		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		TrustProxyHeaders: v.GetBool("TRUST_PROXY_HEADERS"),

		SMTPHost:  v.GetString("SMTP_HOST"),
		SMTPPort:  v.GetInt("SMTP_PORT"),
		SMTPUser:  v.GetString("SMTP_USER"),
		SMTPPass:  v.GetString("SMTP_PASS"),
		EmailFrom: v.GetString("EMAIL_FROM"),
		ResetURL:  v.GetString("RESET_URL"),

		SwaggerHost: v.GetString("SWAGGER_HOST"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.ServerPort)
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL %q, expected one of %v", c.LogLevel, validLogLevels)
	}
	if !slices.Contains(validStorageDrivers, c.StorageDriver) {
		return fmt.Errorf("invalid STORAGE_DRIVER %q, expected one of %v", c.StorageDriver, validStorageDrivers)
	}
	if c.StorageDriver != "json" && c.DSN() == "" {
		return fmt.Errorf("STORAGE_DRIVER %s requires a connection string", c.StorageDriver)
	}
	if c.RateLimitEnabled && (c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0) {
		return fmt.Errorf("rate limit needs positive RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW")
	}
	return nil
}
