package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Auth modes.
const (
	AuthJWT      = "jwt"
	AuthSupabase = "supabase"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreSupabase = "supabase"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
		// AuthRateLimit is requests per minute per client on /api/auth. 0 disables.
		AuthRateLimit int `validate:"gte=0"`
		// TrustedProxies may set X-Forwarded-For. Empty trusts none.
		TrustedProxies []string `validate:"dive,ip|cidr"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	AuthMode string `validate:"required,oneof=jwt supabase"`
	Store    struct {
		Driver      string `validate:"required,oneof=postgres sqlite supabase"`
		DatabaseURL string `validate:"required_if=Driver postgres"`
		SQLitePath  string `validate:"required_if=Driver sqlite"`
	}
	JWT struct {
		Secret        string
		RefreshSecret string
		AccessTTL     time.Duration `validate:"gt=0"`
		RefreshTTL    time.Duration `validate:"gt=0"`
	}
	Supabase struct {
		URL            string `validate:"omitempty,url"`
		AnonKey        string
		ServiceRoleKey string
		RESTRetries    int `validate:"gte=0,lte=10"`
	}
	HealthSchedule string `validate:"required"`
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.HTTP.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = os.Getenv("LOG_FILE")
	c.AuthMode = strings.ToLower(getenv("AUTH_MODE", AuthJWT))
	c.Store.Driver = strings.ToLower(getenv("STORE_DRIVER", StoreSQLite))
	c.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	c.Store.SQLitePath = getenv("SQLITE_PATH", "data/app.db")
	c.JWT.Secret = os.Getenv("JWT_SECRET")
	c.JWT.RefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	c.Supabase.URL = os.Getenv("SUPABASE_URL")
	c.Supabase.AnonKey = os.Getenv("SUPABASE_ANON_KEY")
	c.Supabase.ServiceRoleKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	c.HealthSchedule = getenv("HEALTH_CHECK_SCHEDULE", "@every 30s")

	var err error
	if c.JWT.AccessTTL, err = ParseDuration(getenv("JWT_ACCESS_EXPIRES_IN", "15m")); err != nil {
		return Config{}, fmt.Errorf("JWT_ACCESS_EXPIRES_IN: %w", err)
	}
	if c.JWT.RefreshTTL, err = ParseDuration(getenv("JWT_REFRESH_EXPIRES_IN", "30d")); err != nil {
		return Config{}, fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err)
	}
	if c.HTTP.AuthRateLimit, err = strconv.Atoi(getenv("AUTH_RATE_LIMIT", "10")); err != nil {
		return Config{}, fmt.Errorf("AUTH_RATE_LIMIT: %w", err)
	}
	if c.Supabase.RESTRetries, err = strconv.Atoi(getenv("SUPABASE_REST_RETRIES", "2")); err != nil {
		return Config{}, fmt.Errorf("SUPABASE_REST_RETRIES: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field rules and the combinations of auth mode and store.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AuthMode == AuthJWT {
		if c.Store.Driver == StoreSupabase {
			return errors.New("AUTH_MODE=jwt keeps users in the database and needs STORE_DRIVER postgres or sqlite")
		}
		if c.JWT.Secret == "" || c.JWT.RefreshSecret == "" {
			return errors.New("JWT_SECRET and JWT_REFRESH_SECRET required when AUTH_MODE=jwt")
		}
		if c.JWT.Secret == c.JWT.RefreshSecret {
			return errors.New("JWT_REFRESH_SECRET must differ from JWT_SECRET")
		}
	}
	if c.NeedsSupabase() && (c.Supabase.URL == "" || c.Supabase.AnonKey == "") {
		return errors.New("SUPABASE_URL and SUPABASE_ANON_KEY required when AUTH_MODE or STORE_DRIVER is supabase")
	}
	if c.Store.Driver == StoreSupabase && c.Supabase.ServiceRoleKey == "" {
		return errors.New("SUPABASE_SERVICE_ROLE_KEY required when STORE_DRIVER=supabase")
	}
	return nil
}

// NeedsSupabase reports whether any component talks to Supabase.
func (c Config) NeedsSupabase() bool {
	return c.AuthMode == AuthSupabase || c.Store.Driver == StoreSupabase
}

// LogValue logs the configuration without secrets.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.String("http_addr", c.HTTP.Addr),
		slog.String("auth_mode", c.AuthMode),
		slog.String("store_driver", c.Store.Driver),
		slog.String("health_schedule", c.HealthSchedule),
	)
}

// ParseDuration extends time.ParseDuration with a day unit, as in "30d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
