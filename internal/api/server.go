// Package api exposes backtest runs over HTTP: submit a run, list past
// runs, and pull a run's full result or equity curve. Completed runs are
// held in memory, keyed by id.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hindcast/internal/backtest"
	"hindcast/internal/strategy"
)

// Server hosts the backtest HTTP API.
type Server struct {
	engine *gin.Engine
	server *http.Server
	log    *slog.Logger
}

// NewServer wires the API around a Backtester and the strategy registry
// it should report.
func NewServer(host string, port int, runner *backtest.Backtester, registry *strategy.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine: engine,
		log:    slog.Default().With("component", "api"),
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", host, port),
			Handler: engine,
		},
	}

	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(s.logMiddleware())

	h := newHandler(runner, registry)
	api := engine.Group("/api/v1")
	{
		api.POST("/backtests", h.CreateBacktest)
		api.GET("/backtests", h.ListBacktests)
		api.GET("/backtests/:id", h.GetBacktest)
		api.GET("/backtests/:id/equity", h.GetEquity)
		api.GET("/strategies", h.ListStrategies)
	}
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return s
}

// Handler returns the underlying handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.log.Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
