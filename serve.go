package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vcscsvcscs/medwatch/internal/config"
	"github.com/vcscsvcscs/medwatch/internal/middleware"
	"github.com/vcscsvcscs/medwatch/internal/openapi"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	router, err := newRouter(ctx, cfg, a)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})

	if a.consumer != nil {
		g.Go(func() error {
			logger.Info("Consuming evaluation triggers", zap.String("transport", cfg.Trigger.Transport))
			return a.consumer.Run(gctx, a.handleTrigger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server exited")
	return err
}

func newRouter(ctx context.Context, cfg *config.Config, a *app) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	doc, err := openapi.Load(ctx)
	if err != nil {
		return nil, err
	}
	validate, err := openapi.ValidationMiddleware(doc, a.logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(a.metrics)

	r := gin.New()

	// Recovery must be first
	r.Use(middleware.RecoveryMiddleware(a.logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowAllOrigins:  len(cfg.Server.CORSOrigins) == 0,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(a.logger))
	r.Use(middleware.ErrorLoggingMiddleware(a.logger))
	r.Use(middleware.MetricsMiddleware(a.metrics))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET("/openapi.yaml", openapi.ServeDocument)

	api.RegisterHandlersWithOptions(r, a.api, api.GinServerOptions{
		Middlewares: []api.MiddlewareFunc{api.MiddlewareFunc(validate)},
	})

	return r, nil
}
