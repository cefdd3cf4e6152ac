package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"semantic-sensei/internal/adapters/blibli"
	"semantic-sensei/internal/adapters/classifier"
	"semantic-sensei/internal/adapters/repo"
	"semantic-sensei/internal/infra/config"
	"semantic-sensei/internal/infra/db"
	applog "semantic-sensei/internal/infra/log"
	"semantic-sensei/internal/infra/metrics"
	"semantic-sensei/internal/infra/queue"
	"semantic-sensei/internal/usecase/ingest"
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
		logger.Fatal().Err(err).Msg("mapper: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	blibliClient := blibli.NewClient(blibli.Config{
		BaseURL:       cfg.Blibli.BaseURL,
		ChannelID:     cfg.Blibli.ChannelID,
		UserAgent:     cfg.Blibli.UserAgent,
		SessionCookie: cfg.Blibli.SessionCookie,
		Timeout:       cfg.Blibli.Timeout,
		RPS:           cfg.Blibli.RPS,
	}, logger)
	classifierClient := classifier.NewClient(cfg.Classifier.URL, cfg.Classifier.Timeout)

	ingestSvc := ingest.NewService(repoAdapter, blibliClient, classifierClient, ingest.Config{
		CheckpointPath:  cfg.Checkpoint.Path,
		CheckpointEvery: cfg.Checkpoint.Every,
		DefaultBoost:    cfg.Limits.DefaultBoost,
	}, logger)

	if cfg.Mapper.TermsCSV != "" {
		termList, err := readSearchTerms(cfg.Mapper.TermsCSV)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Mapper.TermsCSV).Msg("mapper: не удалось прочитать термины")
		}
		logger.Info().Int("count", len(termList)).Msg("mapper: пакетная обработка")
		if err := ingestSvc.RunBatch(ctx, termList); err != nil {
			logger.Fatal().Err(err).Msg("mapper: пакетная обработка прервана")
		}
		logger.Info().Msg("mapper: пакетная обработка завершена")
	}

	if cfg.Mapper.Backfill {
		logger.Info().Msg("mapper: дозаполнение каталожных категорий")
		if err := ingestSvc.BackfillCatalog(ctx); err != nil {
			logger.Fatal().Err(err).Msg("mapper: дозаполнение прервано")
		}
		logger.Info().Msg("mapper: дозаполнение завершено")
	}

	if cfg.Mapper.Reclassify {
		logger.Info().Msg("mapper: пересчёт типов терминов")
		if err := ingestSvc.ReclassifyTermTypes(ctx); err != nil {
			logger.Fatal().Err(err).Msg("mapper: пересчёт прерван")
		}
	}

	if cfg.Mapper.ConsumeQueue {
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("mapper: не указан адрес Redis (REDIS_ADDR)")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		classifyQueue := queue.NewRedisClassifyQueue(redisClient, cfg.Queues.Classify)

		logger.Info().Str("queue", cfg.Queues.Classify).Msg("mapper: чтение очереди задач")
		if err := ingestSvc.ConsumeQueue(ctx, classifyQueue); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("mapper: чтение очереди прервано")
		}
	}

	logger.Info().Msg("mapper: остановка")
}

// readSearchTerms читает термины из CSV с колонкой "Search Keyword".
func readSearchTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	termIdx := -1
	for i, col := range header {
		if strings.TrimSpace(col) == "Search Keyword" {
			termIdx = i
			break
		}
	}
	if termIdx < 0 {
		return nil, fmt.Errorf("column \"Search Keyword\" not found in %v", header)
	}

	var termList []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) <= termIdx {
			continue
		}
		term := strings.TrimSpace(row[termIdx])
		if term != "" {
			termList = append(termList, term)
		}
	}
	return termList, nil
}
