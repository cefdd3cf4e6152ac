package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/infra/metrics"
	"semantic-sensei/internal/usecase/terms"
)

// Config описывает параметры пакетной обработки.
type Config struct {
	CheckpointPath  string
	CheckpointEvery int
	DefaultBoost    int
}

// Service строит записи терминов: каталожные категории из фасета,
// модельные — от классификатора.
type Service struct {
	terms      domain.TermRepo
	catalog    domain.CatalogFetcher
	classifier domain.Classifier
	cfg        Config
	log        zerolog.Logger
}

// NewService создаёт сервис пакетной обработки.
func NewService(termRepo domain.TermRepo, catalog domain.CatalogFetcher, classifier domain.Classifier, cfg Config, logger zerolog.Logger) *Service {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 50
	}
	if cfg.DefaultBoost <= 0 {
		cfg.DefaultBoost = 100
	}
	return &Service{
		terms:      termRepo,
		catalog:    catalog,
		classifier: classifier,
		cfg:        cfg,
		log:        logger.With().Str("component", "ingest").Logger(),
	}
}

// ProcessTerm выполняет полный конвейер одного термина: фасет каталога,
// классификация, апсерт записи с пересчётом типа. Сбой фасета деградирует
// до пустого списка; сбой классификатора сохраняет запись без модельных
// категорий и возвращает ошибку вызывающему.
func (s *Service) ProcessTerm(ctx context.Context, term string) error {
	catalogCats, err := s.catalog.FetchCategories(ctx, term)
	if err != nil {
		s.log.Warn().Err(err).Str("term", term).Msg("фасет каталога не получен")
		metrics.ScrapeErrors.WithLabelValues("facet").Inc()
		catalogCats = nil
	}

	var modelCats []domain.ModelCategory
	classification, classifyErr := s.classifier.Classify(ctx, term)
	if classifyErr != nil {
		s.log.Warn().Err(classifyErr).Str("term", term).Msg("классификация не удалась")
	} else {
		for _, p := range classification.Predictions {
			modelCats = append(modelCats, domain.ModelCategory{
				Code:       p.Code,
				Name:       p.Name,
				Score:      p.Score,
				BoostValue: s.cfg.DefaultBoost,
			})
		}
	}

	now := time.Now().UTC()
	rec := domain.TermRecord{
		SearchTerm:        term,
		CatalogCategories: catalogCats,
		ModelCategories:   modelCats,
		Status:            domain.StatusInProgress,
		TermType:          terms.ClassifyTermType(catalogCats, modelCats),
		CreatedDate:       now,
		UpdatedDate:       now,
		EditHistory: []domain.EditEvent{{
			Timestamp: now,
			Action:    domain.EditCreated,
			Details:   "",
		}},
	}
	if existing, ok, err := s.terms.GetTerm(ctx, term); err == nil && ok {
		rec.CreatedDate = existing.CreatedDate
		rec.EditHistory = existing.EditHistory
		rec.Status = existing.Status
	}
	if err := s.terms.UpsertTerm(ctx, rec); err != nil {
		metrics.IncTermProcessed("store_error")
		return err
	}
	if classifyErr != nil {
		metrics.IncTermProcessed("classify_error")
		return classifyErr
	}
	metrics.IncTermProcessed("ok")
	return nil
}

// RunBatch последовательно обрабатывает термины, сохраняя чекпоинт каждые
// CheckpointEvery записей. Сбои отдельных терминов логируются и
// пропускаются. Успешный прогон удаляет чекпоинт.
func (s *Service) RunBatch(ctx context.Context, termList []string) error {
	cp, err := LoadCheckpoint(s.cfg.CheckpointPath)
	if err != nil {
		return err
	}
	if cp.Processed > 0 {
		s.log.Info().Int("processed", cp.Processed).Int("total", len(termList)).Msg("продолжаем с чекпоинта")
	}

	for i := cp.Processed; i < len(termList); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		term := termList[i]
		if err := s.ProcessTerm(ctx, term); err != nil {
			s.log.Warn().Err(err).Str("term", term).Msg("термин пропущен")
		}
		if (i+1)%s.cfg.CheckpointEvery == 0 {
			if err := SaveCheckpoint(s.cfg.CheckpointPath, Checkpoint{Processed: i + 1, Total: len(termList)}); err != nil {
				s.log.Warn().Err(err).Msg("не удалось сохранить чекпоинт")
			}
		}
	}
	return ClearCheckpoint(s.cfg.CheckpointPath)
}

// BackfillCatalog дозаполняет каталожные категории у записей, где их нет.
// Записи и история правок при этом не пересоздаются.
func (s *Service) BackfillCatalog(ctx context.Context) error {
	termList, err := s.terms.ListTermsWithoutCatalog(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int("count", len(termList)).Msg("термины без каталожных категорий")

	for _, term := range termList {
		if err := ctx.Err(); err != nil {
			return err
		}
		catalogCats, err := s.catalog.FetchCategories(ctx, term)
		if err != nil {
			s.log.Warn().Err(err).Str("term", term).Msg("фасет каталога не получен")
			metrics.ScrapeErrors.WithLabelValues("facet").Inc()
			continue
		}
		if len(catalogCats) == 0 {
			continue
		}
		rec, ok, err := s.terms.GetTerm(ctx, term)
		if err != nil || !ok {
			continue
		}
		rec.CatalogCategories = catalogCats
		rec.TermType = terms.ClassifyTermType(rec.CatalogCategories, rec.ModelCategories)
		rec.UpdatedDate = time.Now().UTC()
		if _, err := s.terms.SaveTerm(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("term", term).Msg("не удалось сохранить запись")
		}
	}
	return nil
}

// ReclassifyTermTypes пересчитывает тип всех записей с модельными
// категориями и сохраняет только реально изменившиеся.
func (s *Service) ReclassifyTermTypes(ctx context.Context) error {
	records, err := s.terms.ListTermsWithModelCategories(ctx)
	if err != nil {
		return err
	}
	changed := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		newType := terms.ClassifyTermType(rec.CatalogCategories, rec.ModelCategories)
		if newType == rec.TermType {
			continue
		}
		rec.TermType = newType
		rec.UpdatedDate = time.Now().UTC()
		if _, err := s.terms.SaveTerm(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("term", rec.SearchTerm).Msg("не удалось сохранить запись")
			continue
		}
		changed++
	}
	s.log.Info().Int("total", len(records)).Int("changed", changed).Msg("типы терминов пересчитаны")
	return nil
}

// ConsumeQueue обрабатывает задачи классификации из очереди до отмены контекста.
func (s *Service) ConsumeQueue(ctx context.Context, queue domain.ClassifyQueue) error {
	for {
		job, err := queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		metrics.IncClassifyJob(string(job.Cause))
		s.log.Info().Str("term", job.SearchTerm).Str("job_id", job.ID).Msg("задача классификации получена")
		if err := s.ProcessTerm(ctx, job.SearchTerm); err != nil {
			s.log.Warn().Err(err).Str("term", job.SearchTerm).Msg("задача завершилась с ошибкой")
		}
	}
}
