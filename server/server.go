// Package server wires the HTTP API and the background embedding worker
// into one process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/leafmark/leafmark/internal/profile"
	"github.com/leafmark/leafmark/plugin/ai"
	"github.com/leafmark/leafmark/server/metrics"
	"github.com/leafmark/leafmark/server/middleware"
	apiv1 "github.com/leafmark/leafmark/server/router/api/v1"
	"github.com/leafmark/leafmark/server/runner/embedding"
	"github.com/leafmark/leafmark/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	exporter   *metrics.Exporter
	runner     *embedding.Runner
}

func NewServer(ctx context.Context, p *profile.Profile, s *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	// 10 requests per second per client, with burst of 20.
	e.Use(middleware.NewRateLimiter(10, 20).Middleware())

	exporter := metrics.NewExporter(metrics.DefaultConfig())

	server := &Server{
		Profile:    p,
		Store:      s,
		echoServer: e,
		exporter:   exporter,
	}

	e.GET("/healthz", server.healthz)
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(p, s, exporter)
	apiV1Service.RegisterRoutes(e)

	if p.IsEmbeddingEnabled() {
		aiConfig := ai.NewConfigFromProfile(p)
		if err := aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid embedding configuration: %w", err)
		}
		embeddingService, err := ai.NewEmbeddingService(&aiConfig.Embedding)
		if err != nil {
			return nil, fmt.Errorf("create embedding service: %w", err)
		}
		server.runner = embedding.NewRunner(s, embeddingService, exporter, p)
	} else {
		slog.Warn("no embedding provider configured, queue will accumulate jobs without processing")
	}

	return server, nil
}

// Start launches the HTTP listener and the background worker. It returns
// immediately; errors from the listener are logged.
func (s *Server) Start(ctx context.Context) error {
	if s.runner != nil {
		go s.runner.Run(ctx)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
		if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the HTTP listener gracefully and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown http server", "error", err)
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("leafmark stopped")
}

func (s *Server) healthz(c echo.Context) error {
	if err := s.Store.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
	}
	return c.String(http.StatusOK, "Service ready.")
}

// GetEcho exposes the router for tests.
func (s *Server) GetEcho() *echo.Echo {
	return s.echoServer
}
