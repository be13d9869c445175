package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the agent.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	CheckIn      CheckInConfig
	Geofence     GeofenceConfig
	DataAccess   DataAccessConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN keeps trace data
// in the key-value store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr selects the
// in-memory key-value store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
	Service  string
}

// AuthConfig defines API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	PairingSecretHash     string
}

// CheckInConfig holds checkout validation thresholds.
type CheckInConfig struct {
	MinimumDurationSeconds int
	MinimumDistanceMeters  float64
}

// GeofenceConfig holds region sizing and exit confirmation.
type GeofenceConfig struct {
	DwellSeconds    int
	MinRadiusMeters float64
	MaxRadiusMeters float64
}

// DataAccessConfig configures the accessed-data reconciliation.
type DataAccessConfig struct {
	APIBaseURL          string
	FetchTimeoutSeconds int
	SyncIntervalMinutes int
	RetentionDays       int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "checkin-agent"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "127.0.0.1"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "checkin-agent"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PairingSecretHash:     os.Getenv("AUTH_PAIRING_SECRET_HASH"),
		},
		CheckIn: CheckInConfig{
			MinimumDurationSeconds: getEnvAsInt("CHECKIN_MINIMUM_DURATION_SECONDS", 120),
			MinimumDistanceMeters:  getEnvAsFloat("CHECKIN_MINIMUM_DISTANCE_METERS", 50),
		},
		Geofence: GeofenceConfig{
			DwellSeconds:    getEnvAsInt("GEOFENCE_DWELL_SECONDS", 60),
			MinRadiusMeters: getEnvAsFloat("GEOFENCE_MIN_RADIUS_METERS", 50),
			MaxRadiusMeters: getEnvAsFloat("GEOFENCE_MAX_RADIUS_METERS", 5000),
		},
		DataAccess: DataAccessConfig{
			APIBaseURL:          getEnv("DATA_ACCESS_API_BASE_URL", "http://localhost:8081/api/v3"),
			FetchTimeoutSeconds: getEnvAsInt("DATA_ACCESS_FETCH_TIMEOUT_SECONDS", 10),
			SyncIntervalMinutes: getEnvAsInt("DATA_ACCESS_SYNC_INTERVAL_MINUTES", 60),
			RetentionDays:       getEnvAsInt("TRACE_RETENTION_DAYS", 14),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	cfg.Logger.Service = cfg.App.Name

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MinimumDuration returns the minimum session length before checkout.
func (c CheckInConfig) MinimumDuration() time.Duration {
	return time.Duration(c.MinimumDurationSeconds) * time.Second
}

// Dwell returns the exit confirmation interval.
func (g GeofenceConfig) Dwell() time.Duration {
	return time.Duration(g.DwellSeconds) * time.Second
}

// Retention returns the trace retention window.
func (d DataAccessConfig) Retention() time.Duration {
	if d.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

// FetchTimeout returns the timeout of one access-data request.
func (d DataAccessConfig) FetchTimeout() time.Duration {
	if d.FetchTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.FetchTimeoutSeconds) * time.Second
}

// SyncInterval returns how often accessed data is reconciled.
func (d DataAccessConfig) SyncInterval() time.Duration {
	if d.SyncIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(d.SyncIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
