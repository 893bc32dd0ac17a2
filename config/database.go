package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// ConnectDatabaseWithRetry opens the configured database, retrying with
// exponential backoff until it succeeds or ctx is done.
func ConnectDatabaseWithRetry(ctx context.Context, s *Settings) (*gorm.DB, error) {
	var attempt int
	for {
		attempt++
		db, err := OpenDatabase(s)
		if err == nil {
			log.Printf("connected to database (driver=%s attempt=%d)", s.DBDriver, attempt)
			return db, nil
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect database: %w", ctx.Err())
		case <-time.After(sleep):
		}
	}
}

// OpenDatabase opens one connection pool for the configured driver.
func OpenDatabase(s *Settings) (*gorm.DB, error) {
	dialector, err := dialectorFor(s)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, initConfig())
	if err != nil {
		return nil, err
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		if s.DBDriver == DriverSQLite {
			// one writer at a time; sqlite serialises anyway
			sqlDB.SetMaxOpenConns(1)
		} else {
			if s.DBMaxOpenConns > 0 {
				sqlDB.SetMaxOpenConns(s.DBMaxOpenConns)
			}
			if s.DBMaxIdleConns >= 0 {
				sqlDB.SetMaxIdleConns(s.DBMaxIdleConns)
			}
			if s.DBConnMaxLifetime > 0 {
				sqlDB.SetConnMaxLifetime(s.DBConnMaxLifetime)
			}
		}
	}

	if err := installPlugins(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a sqlite database (file path or in-memory dsn) with the same
// plugins and naming strategy as production.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return OpenDatabase(&Settings{DBDriver: DriverSQLite, DBDSN: dsn})
}

func installPlugins(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return fmt.Errorf("install otelgorm plugin: %w", err)
	}
	if err := db.Use(NewLedgerGuardPlugin()); err != nil {
		return fmt.Errorf("install ledger guard plugin: %w", err)
	}
	return nil
}

func dialectorFor(s *Settings) (gorm.Dialector, error) {
	switch s.DBDriver {
	case DriverMySQL:
		return mysql.Open(mysqlDSN(s)), nil
	case DriverPostgres:
		return postgres.Open(postgresDSN(s)), nil
	case DriverSQLite:
		dsn := s.DBDSN
		if dsn == "" {
			dsn = s.DBName
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", s.DBDriver)
	}
}

func mysqlDSN(s *Settings) string {
	if s.DBDSN != "" {
		return s.DBDSN
	}
	network := "tcp"
	address := fmt.Sprintf("%s:%s", s.DBHost, s.DBPort)
	// Cloud SQL unix socket, e.g. DB_HOST=/cloudsql/<CONNECTION_NAME>
	if strings.HasPrefix(s.DBHost, "/cloudsql/") {
		network = "unix"
		address = s.DBHost
	}
	return fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true&loc=UTC",
		s.DBUser,
		s.DBPassword,
		network,
		address,
		s.DBName,
	)
}

func postgresDSN(s *Settings) string {
	if s.DBDSN != "" {
		return s.DBDSN
	}
	port := s.DBPort
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		s.DBHost, port, s.DBUser, s.DBPassword, s.DBName)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func initLog() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
