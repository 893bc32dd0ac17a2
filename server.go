package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/textile_ledger/accounting"
	"github.com/mmdatafocus/textile_ledger/config"
	"github.com/mmdatafocus/textile_ledger/handlers"
	"github.com/mmdatafocus/textile_ledger/middlewares"
	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/mmdatafocus/textile_ledger/utils"
	"github.com/mmdatafocus/textile_ledger/workflow"
	"github.com/sirupsen/logrus"
)

const redisConnectAttempts = 5

// readinessGate answers the startup probe at once and returns 503 for
// everything else until the router is installed.
func readinessGate(app *atomic.Pointer[gin.Engine]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		engine := app.Load()
		if engine == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		engine.ServeHTTP(w, r)
	})
}

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	logger := config.NewLogger(settings.LogLevel)
	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening immediately (Cloud Run startup probe is TCP based).
	var app atomic.Pointer[gin.Engine]
	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           readinessGate(&app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	db, err := config.ConnectDatabaseWithRetry(sigCtx, settings)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Fatal(err.Error())
	}
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !settings.SkipMigrations {
		if err := models.MigrateTables(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	rdb, lockClient, err := config.ConnectRedisWithRetry(sigCtx, settings, redisConnectAttempts)
	if err != nil {
		config.LogError(logger, "main", "ConnectRedisWithRetry", "continuing without distributed locks", nil, err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	services := accounting.NewServices(db, utils.NewRedisLocker(lockClient))
	deps := handlers.Dependencies{
		Settings:  settings,
		Logger:    logger,
		Accounts:  services.Accounts,
		Sequencer: services.Sequencer,
		Journal:   services.Journal,
		Ledger:    services.Ledger,
	}
	if settings.RateLimitEnabled && rdb != nil {
		deps.RateLimiter = middlewares.NewRateLimiter(rdb, settings.RateLimitMaxRequests, settings.RateLimitWindow)
	}
	app.Store(handlers.NewRouter(deps))

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if settings.PubSubProjectID != "" && settings.PubSubTopic != "" {
		publisher, err := config.NewPubSubPublisher(sigCtx, settings)
		if err != nil {
			config.LogError(logger, "main", "NewPubSubPublisher", "outbox dispatcher disabled", nil, err)
		} else {
			defer publisher.Close()
			go workflow.NewOutboxDispatcher(db, publisher, logger).Run(dispatcherCtx)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "outbox"}).Warn("PUBSUB_TOPIC not configured; outbox records stay PENDING")
	}

	logger.WithFields(logrus.Fields{"port": settings.Port}).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
