package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"semantic-sensei/internal/adapters/blibli"
	"semantic-sensei/internal/adapters/dashboard"
	"semantic-sensei/internal/adapters/repo"
	"semantic-sensei/internal/infra/cache"
	"semantic-sensei/internal/infra/config"
	"semantic-sensei/internal/infra/db"
	httpinfra "semantic-sensei/internal/infra/http"
	applog "semantic-sensei/internal/infra/log"
	"semantic-sensei/internal/infra/metrics"
	"semantic-sensei/internal/infra/queue"
	"semantic-sensei/internal/usecase/compare"
	"semantic-sensei/internal/usecase/terms"
	"semantic-sensei/internal/usecase/trends"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("api: не указан адрес Redis (REDIS_ADDR)")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := cache.NewRedis(redisClient)
	classifyQueue := queue.NewRedisClassifyQueue(redisClient, cfg.Queues.Classify)

	blibliClient := blibli.NewClient(blibli.Config{
		BaseURL:       cfg.Blibli.BaseURL,
		ChannelID:     cfg.Blibli.ChannelID,
		UserAgent:     cfg.Blibli.UserAgent,
		SessionCookie: cfg.Blibli.SessionCookie,
		Timeout:       cfg.Blibli.Timeout,
		RPS:           cfg.Blibli.RPS,
	}, logger)

	trendSvc := trends.NewService(repoAdapter, logger)
	termSvc := terms.NewService(repoAdapter, trendSvc, cfg.Limits.DefaultBoost, logger)
	compareSvc := compare.NewService(repoAdapter, blibliClient, cfg.Limits.ProductLimit, logger)

	handler := dashboard.NewHandler(termSvc, trendSvc, compareSvc, repoAdapter, classifyQueue, redisCache, cfg.Limits.PageSize, logger)

	server := httpinfra.NewServer(logger)
	handler.Routes(server.Router)

	go func() {
		logger.Info().Int("port", cfg.Port).Msg("api: старт")
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
