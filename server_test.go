package main

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestReadinessGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var app atomic.Pointer[gin.Engine]
	gate := readinessGate(&app)

	serve := func(path string) int {
		w := httptest.NewRecorder()
		gate.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, serve("/healthz"))
	assert.Equal(t, http.StatusServiceUnavailable, serve("/api/accounts"))

	r := gin.New()
	r.GET("/api/accounts", func(c *gin.Context) { c.JSON(http.StatusOK, []string{}) })
	app.Store(r)
	assert.Equal(t, http.StatusOK, serve("/api/accounts"))
}
