package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GO_ENV", "PORT", "DB_DRIVER", "DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "DB_DSN",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME_SECONDS", "REDIS_ADDRESS",
		"PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "PUBSUB_TOPIC", "PUBSUB_CREDENTIALS_JSON",
		"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "SKIP_MIGRATIONS", "RATE_LIMIT_ENABLED",
		"RATE_LIMIT_MAX_REQUESTS", "RATE_LIMIT_WINDOW_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "ledger")
	t.Setenv("DB_USER", "ledger")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, DriverMySQL, s.DBDriver)
	assert.Equal(t, 50, s.DBMaxOpenConns)
	assert.Equal(t, 5*time.Minute, s.DBConnMaxLifetime)
	assert.Equal(t, "error", s.LogLevel)
	assert.False(t, s.IsProduction())
	assert.False(t, s.SkipMigrations)
	assert.Equal(t, int64(600), s.RateLimitMaxRequests)
	assert.Equal(t, time.Minute, s.RateLimitWindow)
	assert.Empty(t, s.CORSAllowedOrigins)
}

func TestLoadSettingsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GO_ENV", "Production")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "postgres://ledger@db/ledger")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "textile-prod")
	t.Setenv("PUBSUB_TOPIC", "ledger-events")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://erp.example.com, ,https://ops.example.com ")
	t.Setenv("SKIP_MIGRATIONS", "TRUE")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.True(t, s.IsProduction())
	assert.Equal(t, DriverPostgres, s.DBDriver)
	assert.Equal(t, "textile-prod", s.PubSubProjectID)
	assert.Equal(t, "ledger-events", s.PubSubTopic)
	assert.Equal(t, []string{"https://erp.example.com", "https://ops.example.com"}, s.CORSAllowedOrigins)
	assert.True(t, s.SkipMigrations)
	assert.True(t, s.RateLimitEnabled)
	assert.Equal(t, 30*time.Second, s.RateLimitWindow)
	assert.Equal(t, 50, s.DBMaxOpenConns)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr string
	}{
		{"mysql missing", Settings{DBDriver: DriverMySQL, DBHost: "h"}, "missing database settings: DB_NAME, DB_USER"},
		{"mysql dsn", Settings{DBDriver: DriverMySQL, DBDSN: "u:p@tcp(h)/d"}, ""},
		{"sqlite name", Settings{DBDriver: DriverSQLite, DBName: "ledger.db"}, ""},
		{"sqlite empty", Settings{DBDriver: DriverSQLite}, "DB_NAME or DB_DSN is required for sqlite"},
		{"unknown", Settings{DBDriver: "oracle"}, `unsupported DB_DRIVER "oracle"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestDSNBuilders(t *testing.T) {
	s := &Settings{DBUser: "u", DBPassword: "p", DBHost: "/cloudsql/proj:region:inst", DBName: "ledger"}
	assert.Equal(t, "u:p@unix(/cloudsql/proj:region:inst)/ledger?parseTime=true&loc=UTC", mysqlDSN(s))

	s.DBHost, s.DBPort = "10.0.0.5", "3306"
	assert.Equal(t, "u:p@tcp(10.0.0.5:3306)/ledger?parseTime=true&loc=UTC", mysqlDSN(s))

	s.DBPort = ""
	assert.Equal(t, "host=10.0.0.5 port=5432 user=u password=p dbname=ledger sslmode=disable TimeZone=UTC", postgresDSN(s))
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, "debug", NewLogger("debug").GetLevel().String())
	assert.Equal(t, "error", NewLogger("chatty").GetLevel().String())
}
