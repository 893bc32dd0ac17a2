package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Settings holds everything read from the environment at startup.
type Settings struct {
	Env  string
	Port string

	DBDriver          string
	DBUser            string
	DBPassword        string
	DBHost            string
	DBPort            string
	DBName            string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisAddress string

	PubSubProjectID       string
	PubSubTopic           string
	PubSubCredentialsJSON string

	CORSAllowedOrigins []string
	LogLevel           string

	// AutoMigrate can block tables; set SKIP_MIGRATIONS=true and run `ledgerctl migrate` as a job instead.
	SkipMigrations bool

	RateLimitEnabled     bool
	RateLimitMaxRequests int64
	RateLimitWindow      time.Duration
}

// LoadSettings loads .env (when present) and then reads the process environment.
func LoadSettings() (*Settings, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	s := &Settings{
		Env:  strings.TrimSpace(os.Getenv("GO_ENV")),
		Port: stringFromEnv("PORT", "8080"),

		DBDriver:          strings.ToLower(stringFromEnv("DB_DRIVER", DriverMySQL)),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		DBDSN:             os.Getenv("DB_DSN"),
		DBMaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,

		RedisAddress: strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),

		PubSubProjectID:       pubSubProjectID(),
		PubSubTopic:           strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")),
		PubSubCredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		LogLevel:           stringFromEnv("LOG_LEVEL", "error"),

		SkipMigrations: boolFromEnv("SKIP_MIGRATIONS"),

		RateLimitEnabled:     boolFromEnv("RATE_LIMIT_ENABLED"),
		RateLimitMaxRequests: int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)),
		RateLimitWindow:      time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	switch s.DBDriver {
	case DriverMySQL, DriverPostgres:
		if s.DBDSN != "" {
			return nil
		}
		var missing []string
		if s.DBHost == "" {
			missing = append(missing, "DB_HOST")
		}
		if s.DBName == "" {
			missing = append(missing, "DB_NAME")
		}
		if s.DBUser == "" {
			missing = append(missing, "DB_USER")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing database settings: %s", strings.Join(missing, ", "))
		}
	case DriverSQLite:
		if s.DBDSN == "" && s.DBName == "" {
			return errors.New("DB_NAME or DB_DSN is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", s.DBDriver)
	}
	return nil
}

func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.Env, "production")
}

func pubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run sets this
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return ""
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
