package trends

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
)

// Service отвечает за чтение и переклассификацию трендов.
type Service struct {
	trends domain.TrendRepo
	log    zerolog.Logger
}

// NewService создаёт сервис трендов.
func NewService(trends domain.TrendRepo, logger zerolog.Logger) *Service {
	return &Service{
		trends: trends,
		log:    logger.With().Str("component", "trends").Logger(),
	}
}

// Get возвращает запись тренда и сводку; false если тренда нет.
func (s *Service) Get(ctx context.Context, term string) (domain.TrendRecord, domain.TrendStats, bool, error) {
	rec, ok, err := s.trends.GetTrend(ctx, term)
	if err != nil || !ok {
		return domain.TrendRecord{}, domain.TrendStats{}, ok, err
	}
	return rec, Stats(rec), true, nil
}

// AppendPoint добавляет дневную точку, переклассифицирует тренд и сохраняет запись.
func (s *Service) AppendPoint(ctx context.Context, term string, ctr, cvr float64, day string) error {
	rec, ok, err := s.trends.GetTrend(ctx, term)
	if err != nil {
		return err
	}
	if !ok {
		rec = domain.TrendRecord{SearchTerm: term}
	}
	rec.CTR = append(rec.CTR, ctr)
	rec.CVR = append(rec.CVR, cvr)
	rec.Timestamps = append(rec.Timestamps, day)
	rec.TrendType, _ = Classify(rec.CTR)
	rec.LastUpdated = time.Now().UTC()
	return s.trends.UpsertTrend(ctx, rec)
}

// GrowthDays возвращает число подряд идущих дней роста CTR термина.
// Отсутствие тренда — ноль дней.
func (s *Service) GrowthDays(ctx context.Context, term string) (int, error) {
	rec, ok, err := s.trends.GetTrend(ctx, term)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return ConsecutiveGrowthDays(rec.CTR), nil
}
