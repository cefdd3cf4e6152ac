package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/usecase/compare"
	"semantic-sensei/internal/usecase/terms"
	"semantic-sensei/internal/usecase/trends"
)

type stubTermRepo struct {
	records map[string]domain.TermRecord
	total   int
}

func (s *stubTermRepo) GetTerm(_ context.Context, term string) (domain.TermRecord, bool, error) {
	rec, ok := s.records[term]
	return rec, ok, nil
}

func (s *stubTermRepo) ListTerms(_ context.Context, _ string, limit, offset int) ([]domain.TermRecord, int, error) {
	var out []domain.TermRecord
	for _, rec := range s.records {
		out = append(out, rec)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	_ = offset
	return out, s.total, nil
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

type stubTrendRepo struct{}

func (stubTrendRepo) GetTrend(context.Context, string) (domain.TrendRecord, bool, error) {
	return domain.TrendRecord{}, false, nil
}
func (stubTrendRepo) UpsertTrend(context.Context, domain.TrendRecord) error { return nil }

type stubTaxonomy struct{}

func (stubTaxonomy) ReplaceCategories(context.Context, []domain.CategoryRef) error { return nil }
func (stubTaxonomy) ListCategories(context.Context) ([]domain.CategoryRef, error) {
	return []domain.CategoryRef{{Code: "PA-1", Name: "Parfum Wanita"}}, nil
}

type stubQueue struct {
	jobs []domain.ClassifyJob
}

func (s *stubQueue) Enqueue(_ context.Context, job domain.ClassifyJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}
func (s *stubQueue) Pop(context.Context) (domain.ClassifyJob, error) {
	return domain.ClassifyJob{}, context.Canceled
}

type stubFetcher struct{}

func (stubFetcher) FetchProducts(context.Context, domain.ProductQuery) ([]domain.Product, error) {
	return nil, nil
}

func newTestRouter(repo *stubTermRepo, queue *stubQueue) chi.Router {
	logger := zerolog.Nop()
	trendSvc := trends.NewService(stubTrendRepo{}, logger)
	termSvc := terms.NewService(repo, trendSvc, 100, logger)
	compareSvc := compare.NewService(repo, stubFetcher{}, 40, logger)
	handler := NewHandler(termSvc, trendSvc, compareSvc, stubTaxonomy{}, queue, nil, 10, logger)

	r := chi.NewRouter()
	handler.Routes(r)
	return r
}

func lockedRecord() domain.TermRecord {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return domain.TermRecord{
		SearchTerm:      "parfum eser",
		ModelCategories: []domain.ModelCategory{{Code: "PA-1", Name: "Parfum Wanita", BoostValue: 100}},
		Status:          domain.StatusLocked,
		TermType:        domain.TermTypeFilter,
		CreatedDate:     now,
		UpdatedDate:     now,
	}
}

func TestLockedTermRejectsMutations(t *testing.T) {
	repo := &stubTermRepo{records: map[string]domain.TermRecord{"parfum eser": lockedRecord()}}
	router := newTestRouter(repo, &stubQueue{})

	requests := []*http.Request{
		httptest.NewRequest(http.MethodPut, "/api/v1/terms/parfum%20eser/categories/PA-1/boost", strings.NewReader(`{"boost_value": 50}`)),
		httptest.NewRequest(http.MethodPost, "/api/v1/terms/parfum%20eser/categories", strings.NewReader(`{"code":"MA-1","name":"Mainan"}`)),
		httptest.NewRequest(http.MethodDelete, "/api/v1/terms/parfum%20eser/categories/PA-1", nil),
	}
	for _, req := range requests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("%s %s: ожидали 409, получили %d", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestUpdateBoost(t *testing.T) {
	record := lockedRecord()
	record.Status = domain.StatusInProgress
	repo := &stubTermRepo{records: map[string]domain.TermRecord{"parfum eser": record}}
	router := newTestRouter(repo, &stubQueue{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/terms/parfum%20eser/categories/PA-1/boost", strings.NewReader(`{"boost_value": 0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d: %s", rec.Code, rec.Body.String())
	}
	if repo.records["parfum eser"].ModelCategories[0].BoostValue != 0 {
		t.Fatalf("вес должен стать 0")
	}
}

func TestUpdateBoostNegative(t *testing.T) {
	record := lockedRecord()
	record.Status = domain.StatusInProgress
	repo := &stubTermRepo{records: map[string]domain.TermRecord{"parfum eser": record}}
	router := newTestRouter(repo, &stubQueue{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/terms/parfum%20eser/categories/PA-1/boost", strings.NewReader(`{"boost_value": -5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ожидали 400 для отрицательного веса, получили %d", rec.Code)
	}
}

func TestGetTermNotFound(t *testing.T) {
	repo := &stubTermRepo{records: map[string]domain.TermRecord{}}
	router := newTestRouter(repo, &stubQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terms/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ожидали 404, получили %d", rec.Code)
	}
}

func TestListTermsPagination(t *testing.T) {
	repo := &stubTermRepo{records: map[string]domain.TermRecord{}, total: 42}
	router := newTestRouter(repo, &stubQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terms?page=3&q=parfum", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	var resp struct {
		Total    int `json:"total"`
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if resp.Total != 42 || resp.Page != 3 || resp.PageSize != 10 {
		t.Fatalf("неверная пагинация: %+v", resp)
	}
}

func TestCreateTermEnqueuesJob(t *testing.T) {
	repo := &stubTermRepo{records: map[string]domain.TermRecord{}}
	queue := &stubQueue{}
	router := newTestRouter(repo, queue)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/terms", strings.NewReader(`{"search_term": "tumbler cuculemon"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("ожидали 202, получили %d", rec.Code)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("ожидали одну задачу в очереди, получили %d", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.SearchTerm != "tumbler cuculemon" || job.Cause != domain.ClassifyCauseManual || job.ID == "" {
		t.Fatalf("задача собрана неверно: %+v", job)
	}
}

func TestAddCategoryDuplicate(t *testing.T) {
	record := lockedRecord()
	record.Status = domain.StatusInProgress
	repo := &stubTermRepo{records: map[string]domain.TermRecord{"parfum eser": record}}
	router := newTestRouter(repo, &stubQueue{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/terms/parfum%20eser/categories", strings.NewReader(`{"code":"PA-1","name":"Parfum Wanita"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("ожидали 409 для дубля, получили %d", rec.Code)
	}
}
