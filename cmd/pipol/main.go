// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command pipol runs the Pipol API server: a location-based event
// platform with media uploads, attendance workflows and webhooks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/pipol-go/internal/cache"
	"github.com/olegiv/pipol-go/internal/config"
	"github.com/olegiv/pipol-go/internal/geoip"
	"github.com/olegiv/pipol-go/internal/handler/api"
	"github.com/olegiv/pipol-go/internal/logging"
	appmw "github.com/olegiv/pipol-go/internal/middleware"
	"github.com/olegiv/pipol-go/internal/scheduler"
	"github.com/olegiv/pipol-go/internal/service"
	"github.com/olegiv/pipol-go/internal/session"
	"github.com/olegiv/pipol-go/internal/store"
	"github.com/olegiv/pipol-go/internal/version"
	"github.com/olegiv/pipol-go/internal/webhook"
)

const shutdownTimeout = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := store.NewDB(cfg.DatabaseURL,
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns,
		time.Duration(cfg.DBConnMaxLifetime)*time.Second,
		time.Duration(cfg.DBConnMaxIdleTime)*time.Second,
	)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	queries := store.New(db)

	if cfg.DoSeed {
		if err := store.Seed(context.Background(), queries); err != nil {
			return err
		}
	}

	// Route WARN and above into the persistent audit log as well.
	slog.SetDefault(slog.New(logging.NewAuditLogHandler(logger.Handler(), queries)))

	var geo *geoip.Resolver
	if cfg.GeoIPEnabled() {
		geo, err = geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			slog.Warn("GeoIP disabled", "path", cfg.GeoIPDBPath, "error", err)
		} else {
			defer geo.Close()
		}
	}

	var c cache.Cache
	if cfg.UseRedisCache() {
		c, err = cache.NewRedisCache(cfg.RedisURL, cfg.CachePrefix)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		slog.Info("using redis cache")
	} else {
		c = cache.NewMemoryCache(cfg.CacheMaxSize)
	}
	defer c.Close()
	listCache := cache.NewEventListCache(c, time.Duration(cfg.CacheTTL)*time.Second)

	media := service.NewMediaService(cfg.UploadsDir, cfg.MaxUploadBytes())
	sessions := session.NewManager(db, cfg.IsDevelopment())

	hooks := webhook.NewDispatcher(queries)
	defer hooks.Stop()

	jobs := scheduler.New(queries, geo)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer jobs.Stop()

	apiLimiter := appmw.NewRateLimiter(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst)
	defer apiLimiter.Close()
	loginProt := appmw.NewLoginProtection()
	defer loginProt.Close()

	h := api.New(api.Config{
		DB:        db,
		Queries:   queries,
		Sessions:  sessions,
		Media:     media,
		LoginProt: loginProt,
		Geo:       geo,
		ListCache: listCache,
		Hooks:     hooks,
	})

	r := newRouter(cfg, h, sessions, queries, apiLimiter)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newRouter(cfg *config.Config, h *api.Handler, sessions *session.Manager, queries *store.Queries, limiter *appmw.RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(appmw.Timeout(30 * time.Second))
	r.Use(appmw.StripTrailingSlash)
	r.Use(appmw.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(appmw.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(limiter.Handler)
	r.Use(sessions.LoadAndSave)
	r.Use(appmw.CSRF(appmw.CSRFConfig{
		AuthKey:        []byte(cfg.SecretKey)[:32],
		TrustedOrigins: appmw.CSRFTrustedOrigins(cfg.CORSAllowedOrigins, cfg.IsDevelopment()),
	}))
	r.Use(appmw.LoadUser(sessions, queries))

	r.Get("/health", h.Health)
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Mount("/api", h.Routes())

	uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
	r.With(appmw.StaticCache(24 * time.Hour)).Get("/uploads/*", uploads.ServeHTTP)

	return r
}
