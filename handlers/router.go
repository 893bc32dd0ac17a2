// Package handlers exposes the ledger over HTTP.
package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/textile_ledger/accounting"
	"github.com/mmdatafocus/textile_ledger/config"
	"github.com/mmdatafocus/textile_ledger/middlewares"
	"github.com/sirupsen/logrus"
)

type Dependencies struct {
	Settings  *config.Settings
	Logger    *logrus.Logger
	Accounts  *accounting.AccountRegistry
	Sequencer *accounting.VoucherSequencer
	Journal   *accounting.JournalEngine
	Ledger    *accounting.LedgerProjector

	// RateLimiter is optional.
	RateLimiter *middlewares.RateLimiter
}

type handler struct {
	Dependencies
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Settings == nil {
		deps.Settings = &config.Settings{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	h := &handler{Dependencies: deps}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.TracingMiddleware())
	r.Use(middlewares.RequestLogger(deps.Logger))
	r.Use(cors.New(corsConfig(deps.Settings)))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.RateLimitMiddleware)
	}

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.NoRoute(customNotFoundHandler)

	api := r.Group("/api")
	{
		api.POST("/accounts", h.createAccount)
		api.GET("/accounts", h.listAccounts)
		api.GET("/accounts/tree", h.accountTree)
		api.POST("/accounts/default-chart", h.setupDefaultChart)
		api.GET("/accounts/:id", h.getAccount)
		api.DELETE("/accounts/:id", h.deleteAccount)
		api.GET("/accounts/:id/ledger", h.accountLedger)
		api.GET("/accounts/:id/ledger.xlsx", h.accountLedgerExcel)

		api.POST("/journal-entries", h.createJournalEntry)
		api.GET("/journal-entries", h.listJournalEntries)
		api.GET("/journal-entries/:id", h.getJournalEntry)

		api.GET("/voucher-sequences/:type/next", h.peekVoucherNumber)

		api.GET("/trial-balance", h.trialBalance)
		api.GET("/trial-balance.xlsx", h.trialBalanceExcel)
	}
	return r
}

// Production requires an explicit allowlist via CORS_ALLOWED_ORIGINS; other environments allow all.
func corsConfig(s *config.Settings) cors.Config {
	corsConfig := cors.DefaultConfig()
	if s.IsProduction() {
		if len(s.CORSAllowedOrigins) == 0 {
			// deny all if not configured
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		} else {
			corsConfig.AllowOrigins = s.CORSAllowedOrigins
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", middlewares.CorrelationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationIdHeader)
	corsConfig.AllowCredentials = true
	return corsConfig
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
