package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server          ServerConfig
	Database        DatabaseConfig
	Redis           RedisConfig
	Auth            AuthConfig
	Quota           QuotaConfig
	Dataset         DatasetConfig
	Track           TrackConfig
	Recorder        RecorderConfig
	PublicRateLimit PublicRateLimitConfig
	Seed            SeedConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	// PublicHost is the host the site's own frontend is served from; /api/front only answers it.
	PublicHost string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration. An empty URL disables redis-backed features.
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// Enabled reports whether a redis URL was configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// AuthConfig holds the master credential
type AuthConfig struct {
	MasterKey string
}

// QuotaMode selects how usage is committed against the monthly limit
type QuotaMode string

const (
	// QuotaModeStrict reserves one unit atomically before the handler runs.
	QuotaModeStrict QuotaMode = "strict"
	// QuotaModeLenient checks first and increments after a successful handler.
	QuotaModeLenient QuotaMode = "lenient"
)

// QuotaConfig holds monthly quota settings
type QuotaConfig struct {
	DefaultMonthlyLimit int64
	Mode                QuotaMode
	StorageTimeout      time.Duration
	Timezone            string
}

// Location resolves the configured timezone, falling back to UTC
func (c QuotaConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatasetConfig holds upstream dataset refresh settings
type DatasetConfig struct {
	SourceURL    string
	SnapshotPath string
	Schedule     string
	FetchTimeout time.Duration
	Watch        bool
}

// TrackConfig holds the upstream tracking endpoint
type TrackConfig struct {
	UpstreamURL string
	Timeout     time.Duration
}

// RecorderConfig holds request log recorder settings
type RecorderConfig struct {
	BufferSize int
}

// PublicRateLimitConfig holds the per-IP token bucket for unauthenticated routes
type PublicRateLimitConfig struct {
	RPS   float64
	Burst int
}

// SeedConfig holds the bootstrap seed file location
type SeedConfig struct {
	Path string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			PublicHost:     getEnv("PUBLIC_HOST", "localhost:3000"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "agencies"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "data/agency-proxy.db"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		Auth: AuthConfig{
			MasterKey: getEnv("API_KEY", ""),
		},
		Quota: QuotaConfig{
			DefaultMonthlyLimit: int64(getEnvAsInt("QUOTA_DEFAULT_MONTHLY_LIMIT", 5000)),
			Mode:                QuotaMode(strings.ToLower(getEnv("QUOTA_MODE", string(QuotaModeStrict)))),
			StorageTimeout:      getEnvAsDuration("QUOTA_STORAGE_TIMEOUT", 3*time.Second),
			Timezone:            getEnv("QUOTA_TIMEZONE", "UTC"),
		},
		Dataset: DatasetConfig{
			SourceURL:    getEnv("DATASET_SOURCE_URL", "https://master.shalom-api.lat/list"),
			SnapshotPath: getEnv("DATASET_SNAPSHOT_PATH", "data/agencias.json"),
			Schedule:     getEnv("DATASET_SCHEDULE", "0 0 * * *"),
			FetchTimeout: getEnvAsDuration("DATASET_FETCH_TIMEOUT", 30*time.Second),
			Watch:        getEnvAsBool("DATASET_WATCH", true),
		},
		Track: TrackConfig{
			UpstreamURL: getEnv("TRACK_UPSTREAM_URL", "https://master.shalom-api.lat/track"),
			Timeout:     getEnvAsDuration("TRACK_TIMEOUT", 15*time.Second),
		},
		Recorder: RecorderConfig{
			BufferSize: getEnvAsInt("RECORDER_BUFFER_SIZE", 1024),
		},
		PublicRateLimit: PublicRateLimitConfig{
			RPS:   getEnvAsFloat("PUBLIC_RATE_LIMIT_RPS", 5),
			Burst: getEnvAsInt("PUBLIC_RATE_LIMIT_BURST", 20),
		},
		Seed: SeedConfig{
			Path: getEnv("SEED_FILE", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
