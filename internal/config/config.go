package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Provider credentials are sealed with a key derived from this secret
	EncryptionKey string

	// Providers
	ProviderTimeout   time.Duration
	GoogleAPIURL      string
	SyncTargetCourses []string
	SyncConcurrency   int

	// Plans
	PlansConfigPath string
	DefaultTier     string

	// Sessions
	SessionCacheSize int

	// Logging
	LogLevel     string
	LogRetention time.Duration

	// Server
	Port        string
	CORSOrigins string
	RateLimit   int
	Timezone    string

	// Error tracking
	SentryDSN string
	AppEnv    string
}

var defaults = map[string]any{
	"DB_DRIVER":   "postgres",
	"DB_HOST":     "localhost",
	"DB_PORT":     "5432",
	"DB_USER":     "postgres",
	"DB_PASSWORD": "",
	"DB_NAME":     "assignment_tracker",
	"DB_SSLMODE":  "disable",
	"SQLITE_PATH": "assignments.db",

	"JWT_SECRET":         "",
	"JWT_ACCESS_EXPIRY":  "24h",
	"JWT_REFRESH_EXPIRY": "720h",

	"ENCRYPTION_KEY": "",

	"PROVIDER_TIMEOUT":    "30s",
	"GOOGLE_API_URL":      "https://classroom.googleapis.com",
	"SYNC_TARGET_COURSES": "physics,band,english,math",
	"SYNC_CONCURRENCY":    4,

	"PLANS_CONFIG_PATH": "",
	"DEFAULT_TIER":      "free",

	"SESSION_CACHE_SIZE": 1024,

	"LOG_LEVEL":     "info",
	"LOG_RETENTION": "720h",

	"PORT":         "3000",
	"CORS_ORIGINS": "*",
	"RATE_LIMIT":   60,
	"TZ_NAME":      "UTC",

	"SENTRY_DSN": "",
	"APP_ENV":    "development",
}

// Load reads configuration from the environment after loading a .env file when present.
func Load() *Config {
	return LoadFrom(".env")
}

// LoadFrom is Load with explicit dotenv files. Missing files are skipped and
// variables already set in the environment win.
func LoadFrom(envFiles ...string) *Config {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			slog.Debug("env file loaded", "path", f)
		}
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	return &Config{
		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		SQLitePath: v.GetString("SQLITE_PATH"),

		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTAccessExpiry:  duration(v, "JWT_ACCESS_EXPIRY"),
		JWTRefreshExpiry: duration(v, "JWT_REFRESH_EXPIRY"),

		EncryptionKey: v.GetString("ENCRYPTION_KEY"),

		ProviderTimeout:   duration(v, "PROVIDER_TIMEOUT"),
		GoogleAPIURL:      v.GetString("GOOGLE_API_URL"),
		SyncTargetCourses: splitList(v.GetString("SYNC_TARGET_COURSES")),
		SyncConcurrency:   positive(v, "SYNC_CONCURRENCY"),

		PlansConfigPath: v.GetString("PLANS_CONFIG_PATH"),
		DefaultTier:     v.GetString("DEFAULT_TIER"),

		SessionCacheSize: positive(v, "SESSION_CACHE_SIZE"),

		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
		LogRetention: duration(v, "LOG_RETENTION"),

		Port:        v.GetString("PORT"),
		CORSOrigins: v.GetString("CORS_ORIGINS"),
		RateLimit:   positive(v, "RATE_LIMIT"),
		Timezone:    v.GetString("TZ_NAME"),

		SentryDSN: v.GetString("SENTRY_DSN"),
		AppEnv:    v.GetString("APP_ENV"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// CredentialKey is the secret provider tokens are sealed with. It falls back to
// the JWT secret when no dedicated key is configured.
func (c *Config) CredentialKey() string {
	if c.EncryptionKey != "" {
		return c.EncryptionKey
	}
	return c.JWTSecret
}

// Location is the zone used for dates that carry no offset.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func duration(v *viper.Viper, key string) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	d, _ := time.ParseDuration(defaults[key].(string))
	return d
}

func positive(v *viper.Viper, key string) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return defaults[key].(int)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
