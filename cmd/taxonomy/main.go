package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"semantic-sensei/internal/adapters/blibli"
	"semantic-sensei/internal/adapters/catalog"
	"semantic-sensei/internal/adapters/repo"
	"semantic-sensei/internal/infra/config"
	"semantic-sensei/internal/infra/db"
	applog "semantic-sensei/internal/infra/log"
	"semantic-sensei/internal/infra/metrics"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("taxonomy: нет подключения к БД")
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

	logger.Info().Msg("taxonomy: обход дерева категорий")
	leaves, err := blibliClient.FetchLeafCategories(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("taxonomy: обход не удался")
	}
	if len(leaves) == 0 {
		// Пустой результат не должен затирать рабочий каталог.
		logger.Fatal().Msg("taxonomy: листовые категории не найдены, каталог не обновлён")
	}
	logger.Info().Int("count", len(leaves)).Msg("taxonomy: листовые категории собраны")

	if err := catalog.Save(cfg.Catalog.CSVPath, leaves); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Catalog.CSVPath).Msg("taxonomy: не удалось записать CSV")
	}
	logger.Info().Str("path", cfg.Catalog.CSVPath).Msg("taxonomy: CSV каталог обновлён")

	if err := repoAdapter.ReplaceCategories(ctx, leaves); err != nil {
		logger.Fatal().Err(err).Msg("taxonomy: не удалось обновить таблицу каталога")
	}
	logger.Info().Msg("taxonomy: готово")
}
