package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yukikurage/task-realtime-api/internal/auth"
	"github.com/yukikurage/task-realtime-api/internal/config"
	"github.com/yukikurage/task-realtime-api/internal/constants"
	"github.com/yukikurage/task-realtime-api/internal/database"
	apierrors "github.com/yukikurage/task-realtime-api/internal/errors"
	"github.com/yukikurage/task-realtime-api/internal/handlers"
	"github.com/yukikurage/task-realtime-api/internal/logger"
	"github.com/yukikurage/task-realtime-api/internal/metrics"
	"github.com/yukikurage/task-realtime-api/internal/middleware"
	"github.com/yukikurage/task-realtime-api/internal/realtime"
	"github.com/yukikurage/task-realtime-api/internal/repository"
	"github.com/yukikurage/task-realtime-api/internal/scheduler"
	"github.com/yukikurage/task-realtime-api/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.IsProduction())
	slog.SetDefault(log)

	gin.SetMode(cfg.GinMode)
	apierrors.SetProduction(cfg.IsProduction())

	db, err := database.Connect(cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler, err = metrics.InitMeterProvider(ctx, "task-realtime-api")
		if err != nil {
			log.Error("failed to init meter provider", "error", err)
			os.Exit(1)
		}
		if err := metrics.InitMetrics(ctx); err != nil {
			log.Error("failed to init metrics", "error", err)
			os.Exit(1)
		}
	}

	// Core components
	repos := repository.NewRepositories(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	notificationService := services.NewNotificationService(repos.Notifications)
	taskService := services.NewTaskService(repos, notificationService)
	authService := services.NewAuthService(repos.Users, tokens, constants.BcryptCost)

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, log)
	metrics.SetOnlineUsersFunc(func() int64 { return int64(registry.OnlineCount()) })

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store, err := newSessionStore(cfg)
	if err != nil {
		log.Error("failed to create session store", "error", err)
		os.Exit(1)
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:          handlers.NewAuthHandler(authService, registry),
		Tasks:         handlers.NewTaskHandler(taskService, hub),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Health:        handlers.NewHealthHandler(db),
		Realtime:      realtime.NewHandler(hub, tokens, cfg.FrontendURL).Serve,
	}, tokens)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	jobs := scheduler.New(notificationService, cfg.NotificationRetentionDays, log)
	if err := jobs.Start(cfg.NotificationPruneSchedule); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(r, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", srv.Addr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Shutdown()
	jobs.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newSessionStore uses Redis when REDIS_HOST is set and signed cookies otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTExpiresIn.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.RedisHost == "" {
		store := cookie.NewStore([]byte(cfg.SessionSecret))
		store.Options(options)
		return store, nil
	}

	store, err := redisStore.NewStore(
		10,
		"tcp",
		cfg.RedisHost+":"+cfg.RedisPort,
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return nil, err
	}
	store.Options(options)
	return store, nil
}
