package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	redis "github.com/redis/go-redis/v9"

	httpx "github.com/passdepot/passdepot/internal/http"
	"github.com/passdepot/passdepot/internal/repository/kv"
	"github.com/passdepot/passdepot/internal/service/account"
	"github.com/passdepot/passdepot/internal/service/category"
	"github.com/passdepot/passdepot/internal/service/user"
	"github.com/passdepot/passdepot/internal/web"
	"github.com/passdepot/passdepot/pkg/config"
	"github.com/passdepot/passdepot/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Error("failed to connect to store", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	store := kv.NewRedisStore(redisClient)
	repo := kv.New(store, cfg.KVNamespace)

	accountSvc := account.New(repo, log)
	categorySvc := category.New(repo, repo, log)
	userSvc := user.New(repo, log, cfg.SessionSecret, cfg.SessionTTL)
	webHandler := web.NewHandler(cfg.SessionSecret, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, accountSvc, categorySvc, userSvc, webHandler, limiter, cfg.SessionSecret, cfg.SessionTTL, store.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
