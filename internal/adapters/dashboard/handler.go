package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/usecase/compare"
	"semantic-sensei/internal/usecase/terms"
	"semantic-sensei/internal/usecase/trends"
)

// catalogCacheKey — ключ кэша каталога категорий.
const catalogCacheKey = "catalog:c3"

// catalogCacheTTL — срок жизни кэша каталога до явной инвалидации.
const catalogCacheTTL = 24 * time.Hour

// Handler обслуживает API дашборда аналитика.
type Handler struct {
	terms    *terms.Service
	trends   *trends.Service
	compare  *compare.Service
	taxonomy domain.TaxonomyRepo
	queue    domain.ClassifyQueue
	cache    domain.Cache
	pageSize int
	log      zerolog.Logger
}

// NewHandler создаёт обработчик дашборда.
func NewHandler(termSvc *terms.Service, trendSvc *trends.Service, compareSvc *compare.Service, taxonomy domain.TaxonomyRepo, queue domain.ClassifyQueue, cache domain.Cache, pageSize int, logger zerolog.Logger) *Handler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Handler{
		terms:    termSvc,
		trends:   trendSvc,
		compare:  compareSvc,
		taxonomy: taxonomy,
		queue:    queue,
		cache:    cache,
		pageSize: pageSize,
		log:      logger.With().Str("component", "dashboard").Logger(),
	}
}

// Routes вешает маршруты API на роутер.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/terms", h.listTerms)
		r.Post("/terms", h.createTerm)
		r.Route("/terms/{term}", func(r chi.Router) {
			r.Get("/", h.getTerm)
			r.Delete("/", h.deleteTerm)
			r.Post("/promote", h.promoteTerm)
			r.Get("/trend", h.getTrend)
			r.Post("/trend", h.appendTrendPoint)
			r.Get("/compare", h.compareTerm)
			r.Post("/categories", h.addCategory)
			r.Delete("/categories/{code}", h.removeCategory)
			r.Put("/categories/{code}/boost", h.updateBoost)
		})
		r.Get("/categories", h.listCategories)
		r.Post("/categories/refresh", h.refreshCategories)
	})
}

func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(value); err == nil {
		value = decoded
	}
	return value
}

// termView — представление записи для дашборда, история правок по возрастанию.
type termView struct {
	SearchTerm        string                   `json:"search_term"`
	CatalogCategories []domain.CatalogCategory `json:"catalog_categories"`
	ModelCategories   []domain.ModelCategory   `json:"model_categories"`
	Status            domain.TermStatus        `json:"status"`
	TermType          domain.TermType          `json:"term_type"`
	CreatedDate       time.Time                `json:"created_date"`
	UpdatedDate       time.Time                `json:"updated_date"`
	EditHistory       []domain.EditEvent       `json:"edit_history"`
}

func toView(rec domain.TermRecord) termView {
	return termView{
		SearchTerm:        rec.SearchTerm,
		CatalogCategories: rec.CatalogCategories,
		ModelCategories:   rec.ModelCategories,
		Status:            rec.Status,
		TermType:          rec.TermType,
		CreatedDate:       rec.CreatedDate,
		UpdatedDate:       rec.UpdatedDate,
		EditHistory:       rec.EditHistory,
	}
}

func (h *Handler) listTerms(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * h.pageSize

	records, total, err := h.terms.List(r.Context(), query, h.pageSize, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось получить список терминов")
		writeError(w, http.StatusInternalServerError, "failed to list terms")
		return
	}
	views := make([]termView, 0, len(records))
	for _, rec := range records {
		views = append(views, toView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"terms":     views,
		"total":     total,
		"page":      page,
		"page_size": h.pageSize,
	})
}

type createTermRequest struct {
	SearchTerm string `json:"search_term"`
}

// createTerm ставит задачу живой генерации записи в очередь.
func (h *Handler) createTerm(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req createTermRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	term := strings.TrimSpace(req.SearchTerm)
	if term == "" {
		writeError(w, http.StatusBadRequest, "search_term is required")
		return
	}
	job := domain.ClassifyJob{
		ID:          uuid.NewString(),
		SearchTerm:  term,
		RequestedAt: time.Now().UTC(),
		Cause:       domain.ClassifyCauseManual,
	}
	enqueue := func() error { return h.queue.Enqueue(r.Context(), job) }
	var err error
	if h.cache != nil {
		// Повторный запрос того же термина в течение минуты не плодит задач.
		err = h.cache.Once("classify:once:"+term, time.Minute, enqueue)
	} else {
		err = enqueue()
	}
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось поставить задачу")
		writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (h *Handler) getTerm(w http.ResponseWriter, r *http.Request) {
	term := pathParam(r, "term")
	rec, ok, err := h.terms.Get(r.Context(), term)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось получить запись")
		writeError(w, http.StatusInternalServerError, "failed to get term")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "term not found")
		return
	}
	writeJSON(w, http.StatusOK, toView(rec))
}

func (h *Handler) deleteTerm(w http.ResponseWriter, r *http.Request) {
	term := pathParam(r, "term")
	ok, err := h.terms.Delete(r.Context(), term)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось удалить запись")
		writeError(w, http.StatusInternalServerError, "failed to delete term")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "term not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) promoteTerm(w http.ResponseWriter, r *http.Request) {
	term := pathParam(r, "term")
	ok, err := h.terms.Promote(r.Context(), term)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось вывести запись")
		writeError(w, http.StatusInternalServerError, "failed to promote term")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "term not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ensureEditable возвращает false и пишет ответ, если термин заблокирован
// или отсутствует. Правки категорий запрещены для locked-записей.
func (h *Handler) ensureEditable(ctx context.Context, w http.ResponseWriter, term string) bool {
	rec, ok, err := h.terms.Get(ctx, term)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось получить запись")
		writeError(w, http.StatusInternalServerError, "failed to get term")
		return false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "term not found")
		return false
	}
	if rec.Status == domain.StatusLocked {
		writeError(w, http.StatusConflict, "term is locked")
		return false
	}
	return true
}

type addCategoryRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
	// BoostValue необязателен; без него категория получает вес по умолчанию.
	BoostValue *int `json:"boost_value"`
}

func (h *Handler) addCategory(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	term := pathParam(r, "term")
	var req addCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	boost := -1
	if req.BoostValue != nil {
		if *req.BoostValue < 0 {
			writeError(w, http.StatusBadRequest, "boost_value must be non-negative")
			return
		}
		boost = *req.BoostValue
	}
	if !h.ensureEditable(r.Context(), w, term) {
		return
	}
	ok, err := h.terms.AddCategory(r.Context(), term, req.Code, req.Name, boost)
	if errors.Is(err, terms.ErrDuplicateCategory) {
		writeError(w, http.StatusConflict, "category already present")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось добавить категорию")
		writeError(w, http.StatusInternalServerError, "failed to add category")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "term not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) removeCategory(w http.ResponseWriter, r *http.Request) {
	term := pathParam(r, "term")
	code := pathParam(r, "code")
	if !h.ensureEditable(r.Context(), w, term) {
		return
	}
	ok, err := h.terms.RemoveCategory(r.Context(), term, code)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось удалить категорию")
		writeError(w, http.StatusInternalServerError, "failed to remove category")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type updateBoostRequest struct {
	BoostValue *int `json:"boost_value"`
}

func (h *Handler) updateBoost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	term := pathParam(r, "term")
	code := pathParam(r, "code")
	var req updateBoostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BoostValue == nil || *req.BoostValue < 0 {
		writeError(w, http.StatusBadRequest, "boost_value must be non-negative")
		return
	}
	if !h.ensureEditable(r.Context(), w, term) {
		return
	}
	ok, err := h.terms.UpdateBoost(r.Context(), term, code, *req.BoostValue)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось обновить вес")
		writeError(w, http.StatusInternalServerError, "failed to update boost")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getTrend(w http.ResponseWriter, r *http.Request) {
	term := pathParam(r, "term")
	rec, stats, ok, err := h.trends.Get(r.Context(), term)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось получить тренд")
		writeError(w, http.StatusInternalServerError, "failed to get trend")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "trend not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"search_term":  rec.SearchTerm,
		"ctr":          rec.CTR,
		"cvr":          rec.CVR,
		"timestamps":   rec.Timestamps,
		"trend_type":   rec.TrendType,
		"last_updated": rec.LastUpdated,
		"stats":        stats,
	})
}

type trendPointRequest struct {
	CTR  *float64 `json:"ctr"`
	CVR  *float64 `json:"cvr"`
	Date string   `json:"date"`
}

// appendTrendPoint добавляет дневную точку CTR/CVR и переклассифицирует тренд.
func (h *Handler) appendTrendPoint(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	term := pathParam(r, "term")
	var req trendPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CTR == nil || req.CVR == nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "ctr, cvr and date are required")
		return
	}
	if err := h.trends.AppendPoint(r.Context(), term, *req.CTR, *req.CVR, req.Date); err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось добавить точку тренда")
		writeError(w, http.StatusInternalServerError, "failed to append trend point")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) compareTerm(w http.ResponseWriter, r *http.Request) {
	term := pathParam(r, "term")
	result, ok, err := h.compare.Compare(r.Context(), term)
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("не удалось сравнить выдачи")
		writeError(w, http.StatusInternalServerError, "failed to compare")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "term not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listCategories отдаёт каталог, кэшируя его до явной инвалидации.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if data, err := h.cache.Get(catalogCacheKey); err == nil && len(data) > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}
	categories, err := h.taxonomy.ListCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось получить каталог")
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	payload, err := json.Marshal(map[string]any{"categories": categories})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode categories")
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(catalogCacheKey, payload, catalogCacheTTL); err != nil {
			h.log.Warn().Err(err).Msg("не удалось закэшировать каталог")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) refreshCategories(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if err := h.cache.Del(catalogCacheKey); err != nil {
			h.log.Warn().Err(err).Msg("не удалось сбросить кэш каталога")
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
