package trends

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
)

type stubTrendRepo struct {
	records map[string]domain.TrendRecord
}

func (s *stubTrendRepo) GetTrend(_ context.Context, term string) (domain.TrendRecord, bool, error) {
	rec, ok := s.records[term]
	return rec, ok, nil
}

func (s *stubTrendRepo) UpsertTrend(_ context.Context, rec domain.TrendRecord) error {
	s.records[rec.SearchTerm] = rec
	return nil
}

func TestAppendPointCreatesAndClassifies(t *testing.T) {
	repo := &stubTrendRepo{records: map[string]domain.TrendRecord{}}
	svc := NewService(repo, zerolog.Nop())

	days := []string{"2026-08-25", "2026-08-26", "2026-08-27", "2026-08-28", "2026-08-29"}
	ctr := []float64{0.10, 0.11, 0.12, 0.13, 0.20}
	for i, day := range days {
		if err := svc.AppendPoint(context.Background(), "parfum eser", ctr[i], 0.01, day); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}

	rec := repo.records["parfum eser"]
	if len(rec.CTR) != 5 || len(rec.CVR) != 5 || len(rec.Timestamps) != 5 {
		t.Fatalf("ряды должны быть параллельны: %+v", rec)
	}
	if rec.TrendType != domain.TrendImprovement {
		t.Fatalf("ожидали improvement, получили %s", rec.TrendType)
	}
	if rec.LastUpdated.IsZero() {
		t.Fatalf("lastUpdated должен проставляться")
	}
}

func TestAppendPointFewPointsNeutral(t *testing.T) {
	repo := &stubTrendRepo{records: map[string]domain.TrendRecord{}}
	svc := NewService(repo, zerolog.Nop())

	if err := svc.AppendPoint(context.Background(), "kaos", 0.5, 0.05, "2026-08-29"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got := repo.records["kaos"].TrendType; got != domain.TrendNeutral {
		t.Fatalf("меньше 5 точек — нейтральный тренд, получили %s", got)
	}
}

func TestGrowthDays(t *testing.T) {
	repo := &stubTrendRepo{records: map[string]domain.TrendRecord{
		"parfum eser": {SearchTerm: "parfum eser", CTR: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}},
	}}
	svc := NewService(repo, zerolog.Nop())

	days, err := svc.GrowthDays(context.Background(), "parfum eser")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if days != 5 {
		t.Fatalf("ожидали 5 дней роста, получили %d", days)
	}

	days, err = svc.GrowthDays(context.Background(), "нет тренда")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if days != 0 {
		t.Fatalf("без тренда дней роста быть не должно, получили %d", days)
	}
}
