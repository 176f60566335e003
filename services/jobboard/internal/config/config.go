package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `validate:"oneof=development staging production"`
	ServiceName string `validate:"required"`
	HTTPAddr    string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFile     string

	APIBaseURL        string        `validate:"required,url"`
	APITimeout        time.Duration `validate:"gt=0"`
	ServerSideFilters bool

	SearchDebounce  time.Duration `validate:"gte=0"`
	RefreshInterval time.Duration `validate:"gte=0"`
	EmployerID      string

	AccessToken  string
	RefreshToken string
	TokenStore   string `validate:"oneof=memory redis"`

	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
	CacheTTL      time.Duration

	EventsEnabled   bool
	NATSURL         string        `validate:"required_if=EventsEnabled true"`
	NATSConnTimeout time.Duration `validate:"gt=0"`

	SnapshotsEnabled       bool
	ClickHouseDSN          string `validate:"required_if=SnapshotsEnabled true"`
	ClickHouseMaxOpenConns int
	ClickHouseMaxIdleConns int
	ClickHouseConnMaxLife  time.Duration
	ClickHouseUsername     string
	ClickHousePassword     string
	ClickHouseDatabase     string

	OTELCollectorURL string
}

// LoadConfig reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(getEnvString("JOBBOARD_ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	config := &Config{
		Environment: getEnvString("ENVIRONMENT", "development"),
		ServiceName: getEnvString("SERVICE_NAME", "jobboard"),
		HTTPAddr:    getEnvString("HTTP_ADDR", ":8080"),
		LogLevel:    getEnvString("LOG_LEVEL", "info"),
		LogFile:     getEnvString("LOG_FILE", ""),

		APIBaseURL:        getEnvString("API_BASE_URL", "http://localhost:8000/api/v1"),
		APITimeout:        getEnvDuration("API_TIMEOUT", 15*time.Second),
		ServerSideFilters: getEnvBool("SERVER_SIDE_FILTERS", false),

		SearchDebounce:  getEnvDuration("SEARCH_DEBOUNCE", 250*time.Millisecond),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
		EmployerID:      getEnvString("EMPLOYER_ID", ""),

		AccessToken:  getEnvString("ACCESS_TOKEN", ""),
		RefreshToken: getEnvString("REFRESH_TOKEN", ""),
		TokenStore:   getEnvString("TOKEN_STORE", "memory"),

		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),

		EventsEnabled:   getEnvBool("EVENTS_ENABLED", false),
		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		SnapshotsEnabled:       getEnvBool("SNAPSHOTS_ENABLED", false),
		ClickHouseDSN:          getEnvString("CLICKHOUSE_DSN", "localhost:9000"),
		ClickHouseMaxOpenConns: getEnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		ClickHouseMaxIdleConns: getEnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ClickHouseConnMaxLife:  getEnvDuration("CLICKHOUSE_CONN_MAX_LIFE", time.Hour),
		ClickHouseUsername:     getEnvString("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword:     getEnvString("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase:     getEnvString("CLICKHOUSE_DATABASE", "jobboard"),

		OTELCollectorURL: getEnvString("OTEL_COLLECTOR_URL", ""),
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
