package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apartment-portal/internal/config"
	"apartment-portal/internal/database"
	"apartment-portal/internal/dataset"
	"apartment-portal/internal/handlers"
	"apartment-portal/internal/ranking"
	"apartment-portal/internal/ratelimit"
	"apartment-portal/internal/scheduler"
	"apartment-portal/internal/search"
	"apartment-portal/internal/snapshot"
)

// serve loads the datasets, then listens until ctx is cancelled or a signal arrives
// The listener only opens once the snapshot is published
func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := &snapshot.Holder{}
	if err := loadSnapshot(ctx, cfg, holder); err != nil {
		return err
	}

	var opts []handlers.Option

	if cfg.Search.Enabled {
		searchClient := search.NewSearchClient(
			config.GetEnvOrConfig(cfg.Search.Meilisearch.Host, "MEILISEARCH_HOST", "http://localhost:7700"),
			cfg.Search.Meilisearch.APIKey,
			cfg.Search.Meilisearch.Index,
		)
		if err := searchClient.InitIndex(); err != nil {
			zap.L().Warn("failed to initialize search index", zap.Error(err))
		} else if err := searchClient.IndexRecords(holder.Current().Records); err != nil {
			zap.L().Warn("failed to index ranking records", zap.Error(err))
		}
		opts = append(opts, handlers.WithSearcher(search.NewCircuitBreaker(searchClient, 3, 30*time.Second)))
	}

	if cfg.Consistency.AuditEnabled {
		auditScheduler := scheduler.NewScheduler(holder, cfg.Consistency)
		if err := auditScheduler.Start(); err != nil {
			zap.L().Warn("failed to start scheduler", zap.Error(err))
		} else {
			defer auditScheduler.Stop()
			opts = append(opts, handlers.WithAuditor(auditScheduler))
		}
	}

	rateLimiter := ratelimit.NewRateLimiter(
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.RequestsPerDay,
		cfg.RateLimit.Enabled,
	)
	zap.L().Info("rate limiter initialized",
		zap.Int("per_minute", cfg.RateLimit.RequestsPerMinute),
		zap.Int("per_hour", cfg.RateLimit.RequestsPerHour),
		zap.Int("per_day", cfg.RateLimit.RequestsPerDay),
		zap.Bool("enabled", cfg.RateLimit.Enabled),
	)

	handler := handlers.NewHandler(holder, cfg.Consistency.ExampleLimit, opts...)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(cfg, handler, rateLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server starting", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// loadSnapshot builds the first snapshot and publishes it to holder
func loadSnapshot(ctx context.Context, cfg *config.Config, holder *snapshot.Holder) error {
	policy, err := dataset.ParseMissingPolicy(cfg.Data.MissingPolicy)
	if err != nil {
		return err
	}
	mode, err := ranking.ParseRankMode(cfg.Data.RankMode)
	if err != nil {
		return err
	}

	source, err := database.OpenSource(ctx, cfg)
	if err != nil {
		return eris.Wrap(err, "open data source")
	}
	defer func() {
		if err := source.Close(); err != nil {
			zap.L().Warn("close data source", zap.Error(err))
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Data.GetLoadTimeout())
	defer cancel()

	snap, err := snapshot.Build(loadCtx, dataset.NewLoader(source, policy), snapshot.Names{
		Geometries:  cfg.Data.Resources.Geometries,
		Simulations: cfg.Data.Resources.Simulations,
		Rankings:    cfg.Data.Resources.Rankings,
	}, mode)
	if err != nil {
		return eris.Wrap(err, "load datasets")
	}

	holder.Store(snap)
	return nil
}

// newRouter wires middleware and routes
func newRouter(cfg *config.Config, handler *handlers.Handler, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	logger := zap.L().Named("http")
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, using socket peer", zap.Strings("proxies", cfg.Server.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(handlers.RequestLogger(logger, cfg.Logging.LogRequests))
	r.Use(handlers.Recovery(logger))
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	handler.Register(r, rateLimiter.Middleware())
	r.GET("/api/ratelimit/stats", rateLimiter.StatsHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", handlers.RequestIDHeader},
		ExposeHeaders: []string{handlers.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
