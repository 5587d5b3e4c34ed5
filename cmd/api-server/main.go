package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"releasewatch/internal/bootstrap"
	"releasewatch/internal/config"
	"releasewatch/internal/handler"
	"releasewatch/internal/logging"
	"releasewatch/internal/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		l := logging.New(logging.Config{Level: "info", Format: "text"})
		l.Fatal().Err(err).Msg("could not load config")
	}
	logger := bootstrap.Logger(cfg, "api-server")
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	checks := map[string]func(context.Context) error{}
	store, rs, err := bootstrap.Cache(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, falling back to in-process cache")
	} else {
		defer rs.Close()
		checks["redis"] = rs.Ping
	}

	source, err := bootstrap.CatalogSource(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create catalog client")
	}
	svc := bootstrap.CatalogService(cfg, source, store, m, logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestLogger(logging.Component(logger, "http")))

	handler.RegisterHealth(r, checks)
	if cfg.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	api := r.Group("/api/v1")
	handler.NewMovieListHandler(svc, logging.Component(logger, "lists")).RegisterRoutes(api.Group("/lists"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
