package terms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
)

type stubTermRepo struct {
	records map[string]domain.TermRecord
}

func newStubTermRepo(records ...domain.TermRecord) *stubTermRepo {
	repo := &stubTermRepo{records: map[string]domain.TermRecord{}}
	for _, rec := range records {
		repo.records[rec.SearchTerm] = rec
	}
	return repo
}

func (s *stubTermRepo) GetTerm(_ context.Context, term string) (domain.TermRecord, bool, error) {
	rec, ok := s.records[term]
	return rec, ok, nil
}

func (s *stubTermRepo) ListTerms(context.Context, string, int, int) ([]domain.TermRecord, int, error) {
	return nil, 0, nil
}

func (s *stubTermRepo) ListTermsWithModelCategories(context.Context) ([]domain.TermRecord, error) {
	return nil, nil
}

func (s *stubTermRepo) ListTermsWithoutCatalog(context.Context) ([]string, error) { return nil, nil }

func (s *stubTermRepo) UpsertTerm(_ context.Context, rec domain.TermRecord) error {
	s.records[rec.SearchTerm] = rec
	return nil
}

func (s *stubTermRepo) SaveTerm(_ context.Context, rec domain.TermRecord) (bool, error) {
	if _, ok := s.records[rec.SearchTerm]; !ok {
		return false, nil
	}
	s.records[rec.SearchTerm] = rec
	return true, nil
}

func (s *stubTermRepo) DeleteTerm(_ context.Context, term string) (bool, error) {
	if _, ok := s.records[term]; !ok {
		return false, nil
	}
	delete(s.records, term)
	return true, nil
}

type stubGrowth struct {
	days int
	err  error
}

func (s *stubGrowth) GrowthDays(context.Context, string) (int, error) { return s.days, s.err }

func testRecord() domain.TermRecord {
	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return domain.TermRecord{
		SearchTerm: "parfum eser",
		CatalogCategories: []domain.CatalogCategory{
			{Code: "PA-1", Name: "Parfum Wanita", Count: 120},
		},
		ModelCategories: []domain.ModelCategory{
			{Code: "PA-1", Name: "Parfum Wanita", Score: 85, BoostValue: 100},
			{Code: "PA-2", Name: "Parfum Pria", Score: 60, BoostValue: 100},
		},
		Status:      domain.StatusInProgress,
		TermType:    domain.TermTypeBoosting,
		CreatedDate: created,
		UpdatedDate: created,
		EditHistory: []domain.EditEvent{{Timestamp: created, Action: domain.EditCreated}},
	}
}

func newTestService(repo *stubTermRepo, growth growthSource) *Service {
	return NewService(repo, growth, 100, zerolog.Nop())
}

func TestUpdateBoostAppendsOneEvent(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	ok, err := svc.UpdateBoost(context.Background(), "parfum eser", "PA-2", 150)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !ok {
		t.Fatalf("ожидали успешное обновление")
	}
	rec := repo.records["parfum eser"]
	if len(rec.EditHistory) != 2 {
		t.Fatalf("ожидали ровно одно новое событие, история: %d", len(rec.EditHistory))
	}
	if rec.EditHistory[1].Action != domain.EditBoostUpdate {
		t.Fatalf("ожидали boost_update, получили %s", rec.EditHistory[1].Action)
	}
	if !rec.UpdatedDate.After(testRecord().UpdatedDate) {
		t.Fatalf("ожидали сдвиг updatedDate вперёд")
	}
	if rec.ModelCategories[1].BoostValue != 150 {
		t.Fatalf("ожидали вес 150, получили %d", rec.ModelCategories[1].BoostValue)
	}
}

func TestUpdateBoostUnknownCategory(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	ok, err := svc.UpdateBoost(context.Background(), "parfum eser", "NO-SUCH", 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if ok {
		t.Fatalf("ожидали false для неизвестного кода")
	}
	if len(repo.records["parfum eser"].EditHistory) != 1 {
		t.Fatalf("история не должна меняться")
	}
}

func TestAddCategoryDuplicateRejected(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	ok, err := svc.AddCategory(context.Background(), "parfum eser", "PA-2", "Parfum Pria", -1)
	if !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("ожидали ErrDuplicateCategory, получили %v", err)
	}
	if ok {
		t.Fatalf("дубль должен отклоняться")
	}
	if len(repo.records["parfum eser"].EditHistory) != 1 {
		t.Fatalf("дубль не должен менять историю")
	}
}

func TestAddCategoryManualScoreZero(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	ok, err := svc.AddCategory(context.Background(), "parfum eser", "MA-1", "Mainan", -1)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !ok {
		t.Fatalf("ожидали успешное добавление")
	}
	rec := repo.records["parfum eser"]
	added := rec.ModelCategories[len(rec.ModelCategories)-1]
	if added.Score != 0 {
		t.Fatalf("ручная категория должна иметь score 0, получили %d", added.Score)
	}
	if added.BoostValue != 100 {
		t.Fatalf("ожидали вес по умолчанию 100, получили %d", added.BoostValue)
	}
	if len(rec.EditHistory) != 2 {
		t.Fatalf("ожидали ровно одно новое событие")
	}
}

func TestAddCategoryExplicitBoost(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	ok, err := svc.AddCategory(context.Background(), "parfum eser", "MA-1", "Mainan", 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !ok {
		t.Fatalf("ожидали успешное добавление")
	}
	rec := repo.records["parfum eser"]
	added := rec.ModelCategories[len(rec.ModelCategories)-1]
	if added.BoostValue != 0 {
		t.Fatalf("явный нулевой вес должен сохраняться, получили %d", added.BoostValue)
	}
}

func TestRemoveCategoryRecomputesTermType(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	// PA-1 — единственное пересечение с каталогом.
	ok, err := svc.RemoveCategory(context.Background(), "parfum eser", "PA-1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !ok {
		t.Fatalf("ожидали успешное удаление")
	}
	rec := repo.records["parfum eser"]
	if rec.TermType != domain.TermTypeFilter {
		t.Fatalf("ожидали filterConfiguration, получили %s", rec.TermType)
	}
	if len(rec.ModelCategories) != 1 {
		t.Fatalf("ожидали 1 категорию, получили %d", len(rec.ModelCategories))
	}
}

func TestRemoveCategoryAbsent(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	ok, err := svc.RemoveCategory(context.Background(), "parfum eser", "NO-SUCH")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if ok {
		t.Fatalf("ожидали false для отсутствующего кода")
	}
	if len(repo.records["parfum eser"].EditHistory) != 1 {
		t.Fatalf("история не должна меняться")
	}
}

func TestPromoteIdempotent(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	for i := 0; i < 2; i++ {
		ok, err := svc.Promote(context.Background(), "parfum eser")
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if !ok {
			t.Fatalf("ожидали успех")
		}
	}
	rec := repo.records["parfum eser"]
	if rec.Status != domain.StatusLocked {
		t.Fatalf("ожидали статус locked, получили %s", rec.Status)
	}
	events := 0
	for _, ev := range rec.EditHistory {
		if ev.Action == domain.EditPromoted {
			events++
		}
	}
	if events != 1 {
		t.Fatalf("повторный promote не должен добавлять событий, получили %d", events)
	}
}

func TestAutoLockAfterGrowthStreak(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{days: 5})

	ok, err := svc.UpdateBoost(context.Background(), "parfum eser", "PA-1", 120)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !ok {
		t.Fatalf("ожидали успех")
	}
	rec := repo.records["parfum eser"]
	if rec.Status != domain.StatusLocked {
		t.Fatalf("ожидали статус locked, получили %s", rec.Status)
	}
	last := rec.EditHistory[len(rec.EditHistory)-1]
	if last.Action != domain.EditAutoLocked {
		t.Fatalf("ожидали событие auto_locked, получили %s", last.Action)
	}
}

func TestNoAutoLockBelowThreshold(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{days: 4})

	if _, err := svc.UpdateBoost(context.Background(), "parfum eser", "PA-1", 120); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if repo.records["parfum eser"].Status != domain.StatusInProgress {
		t.Fatalf("статус не должен меняться при росте меньше порога")
	}
}

func TestDeleteTerm(t *testing.T) {
	repo := newStubTermRepo(testRecord())
	svc := newTestService(repo, &stubGrowth{})

	ok, err := svc.Delete(context.Background(), "parfum eser")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !ok {
		t.Fatalf("ожидали успешное удаление")
	}
	ok, err = svc.Delete(context.Background(), "parfum eser")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if ok {
		t.Fatalf("ожидали false для удалённого термина")
	}
}
