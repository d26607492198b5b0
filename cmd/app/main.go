package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task_manager/internal/config"
	"task_manager/internal/db"
	httpServer "task_manager/internal/http"
	"task_manager/internal/http/middleware"
	"task_manager/internal/logger"
	"task_manager/internal/repository"
	"task_manager/internal/service"
	"task_manager/internal/ws"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer handle.Close()

	if cfg.AutoMigrate {
		if err := handle.Migrate(ctx); err != nil {
			logger.Fatal("failed to apply migrations", "error", err)
		}
		logger.Info("migrations applied", "driver", handle.Driver)
	}

	tokens, err := service.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("invalid JWT configuration", "error", err)
	}

	hub := ws.NewHub()
	var publisher service.Publisher = hub

	// Redis is optional: without it rate limits are per process and events stay local
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = middleware.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, continuing without it", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer redisClient.Close()
			relay := ws.NewRelay(redisClient, hub, "")
			publisher = relay
			go func() {
				if err := relay.Run(ctx); err != nil {
					logger.Error("event relay stopped", "error", err)
				}
			}()
		}
	}

	users, tasks := repository.New(handle)
	authService := service.NewAuthService(users, service.NewPasswordHasher(bcrypt.DefaultCost), tokens)
	taskService := service.NewTaskService(tasks, publisher)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := httpServer.NewRouter(httpServer.Deps{
		Config: cfg,
		DB:     handle,
		Redis:  redisClient,
		Auth:   authService,
		Tasks:  taskService,
		Tokens: tokens,
		Hub:    hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "driver", handle.Driver, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
