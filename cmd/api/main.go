package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chats-be/internal/auth"
	"chats-be/internal/config"
	"chats-be/internal/database"
	"chats-be/internal/http/router"
	"chats-be/internal/logger"
	"chats-be/internal/metrics"
	"chats-be/internal/ratelimit"
	"chats-be/internal/reqlog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("failed load config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.Development())
	if err != nil {
		log.Fatal("failed init logger: ", err)
	}
	defer func() { _ = lg.Sync() }()

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		lg.Fatal("failed connect db", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		lg.Fatal("failed migrate", zap.Error(err))
	}

	sink, where := reqlog.OpenFile(cfg.RequestLog.Path)
	defer func() { _ = sink.Close() }()
	if where == "" {
		lg.Warn("request log disabled", zap.String("path", cfg.RequestLog.Path))
	} else {
		lg.Info("request log", zap.String("path", where))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var limiter ratelimit.Limiter
	switch {
	case cfg.RateLimit.PerMinute <= 0:
		lg.Info("throttling disabled")
	case cfg.Redis.Addr != "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Warn("redis unreachable, throttling fails open", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		limiter = ratelimit.NewRedis(rdb, cfg.Redis.Prefix, cfg.RateLimit.PerMinute, time.Minute)
	default:
		mem := ratelimit.NewMemory(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
		go mem.Run(ctx)
		limiter = mem
	}

	r := router.New(router.Deps{
		DB:          db,
		Tokens:      auth.NewTokens(cfg.JWT.Secret, cfg.AccessTTL, cfg.RefreshTTL),
		Log:         lg,
		RequestLog:  sink,
		Limiter:     limiter,
		Metrics:     metrics.New(),
		CORSOrigins: cfg.Origins(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		lg.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}
