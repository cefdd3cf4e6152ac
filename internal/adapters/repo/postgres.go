package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.TermRepo     = (*Postgres)(nil)
	_ domain.TrendRepo    = (*Postgres)(nil)
	_ domain.TaxonomyRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

type termRow struct {
	catalog []byte
	model   []byte
	history []byte
}

func marshalTerm(rec domain.TermRecord) (termRow, error) {
	catalog, err := json.Marshal(rec.CatalogCategories)
	if err != nil {
		return termRow{}, fmt.Errorf("marshal catalog categories: %w", err)
	}
	model, err := json.Marshal(rec.ModelCategories)
	if err != nil {
		return termRow{}, fmt.Errorf("marshal model categories: %w", err)
	}
	history, err := json.Marshal(rec.EditHistory)
	if err != nil {
		return termRow{}, fmt.Errorf("marshal edit history: %w", err)
	}
	return termRow{catalog: catalog, model: model, history: history}, nil
}

func scanTerm(row pgx.Row) (domain.TermRecord, error) {
	var rec domain.TermRecord
	var catalog, model, history []byte
	err := row.Scan(&rec.SearchTerm, &catalog, &model, &rec.Status, &rec.TermType, &rec.CreatedDate, &rec.UpdatedDate, &history)
	if err != nil {
		return domain.TermRecord{}, err
	}
	if len(catalog) > 0 {
		if err := json.Unmarshal(catalog, &rec.CatalogCategories); err != nil {
			return domain.TermRecord{}, fmt.Errorf("unmarshal catalog categories: %w", err)
		}
	}
	if len(model) > 0 {
		if err := json.Unmarshal(model, &rec.ModelCategories); err != nil {
			return domain.TermRecord{}, fmt.Errorf("unmarshal model categories: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &rec.EditHistory); err != nil {
			return domain.TermRecord{}, fmt.Errorf("unmarshal edit history: %w", err)
		}
	}
	if rec.Status == "" {
		rec.Status = domain.StatusInProgress
	}
	return rec, nil
}

const termColumns = `search_term, catalog_categories, model_categories, status, term_type, created_date, updated_date, edit_history`

// GetTerm реализует domain.TermRepo.
func (p *Postgres) GetTerm(ctx context.Context, term string) (domain.TermRecord, bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT `+termColumns+`
FROM search_term_categories
WHERE search_term = $1
`, term)
	rec, err := scanTerm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "term_get", "search_term_categories", start, nil)
		return domain.TermRecord{}, false, nil
	}
	metrics.ObserveNetworkRequest("postgres", "term_get", "search_term_categories", start, err)
	if err != nil {
		return domain.TermRecord{}, false, err
	}
	return rec, true, nil
}

// ListTerms возвращает страницу записей по подстроке термина и общее число совпадений.
func (p *Postgres) ListTerms(ctx context.Context, query string, limit, offset int) ([]domain.TermRecord, int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	pattern := "%" + query + "%"

	start := time.Now()
	var total int
	err := p.pool.QueryRow(ctx, `
SELECT count(*)
FROM search_term_categories
WHERE search_term ILIKE $1
`, pattern).Scan(&total)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "term_list", "search_term_categories", start, err)
		return nil, 0, err
	}

	rows, err := p.pool.Query(ctx, `
SELECT `+termColumns+`
FROM search_term_categories
WHERE search_term ILIKE $1
ORDER BY search_term
LIMIT $2 OFFSET $3
`, pattern, limit, offset)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "term_list", "search_term_categories", start, err)
		return nil, 0, err
	}
	defer rows.Close()

	var records []domain.TermRecord
	for rows.Next() {
		rec, err := scanTerm(rows)
		if err != nil {
			metrics.ObserveNetworkRequest("postgres", "term_list", "search_term_categories", start, err)
			return nil, 0, err
		}
		records = append(records, rec)
	}
	err = rows.Err()
	metrics.ObserveNetworkRequest("postgres", "term_list", "search_term_categories", start, err)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListTermsWithModelCategories возвращает термины, у которых есть модельные категории.
func (p *Postgres) ListTermsWithModelCategories(ctx context.Context) ([]domain.TermRecord, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+termColumns+`
FROM search_term_categories
WHERE jsonb_array_length(coalesce(model_categories, '[]'::jsonb)) > 0
ORDER BY search_term
`)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "term_list_model", "search_term_categories", start, err)
		return nil, err
	}
	defer rows.Close()

	var records []domain.TermRecord
	for rows.Next() {
		rec, err := scanTerm(rows)
		if err != nil {
			metrics.ObserveNetworkRequest("postgres", "term_list_model", "search_term_categories", start, err)
			return nil, err
		}
		records = append(records, rec)
	}
	err = rows.Err()
	metrics.ObserveNetworkRequest("postgres", "term_list_model", "search_term_categories", start, err)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListTermsWithoutCatalog возвращает термины без каталожных категорий.
func (p *Postgres) ListTermsWithoutCatalog(ctx context.Context) ([]string, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT search_term
FROM search_term_categories
WHERE catalog_categories IS NULL
   OR jsonb_array_length(catalog_categories) = 0
ORDER BY search_term
`)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "term_list_no_catalog", "search_term_categories", start, err)
		return nil, err
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			metrics.ObserveNetworkRequest("postgres", "term_list_no_catalog", "search_term_categories", start, err)
			return nil, err
		}
		terms = append(terms, term)
	}
	err = rows.Err()
	metrics.ObserveNetworkRequest("postgres", "term_list_no_catalog", "search_term_categories", start, err)
	if err != nil {
		return nil, err
	}
	return terms, nil
}

// UpsertTerm создаёт запись или полностью замещает существующую.
func (p *Postgres) UpsertTerm(ctx context.Context, rec domain.TermRecord) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	row, err := marshalTerm(rec)
	if err != nil {
		return err
	}
	if rec.Status == "" {
		rec.Status = domain.StatusInProgress
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO search_term_categories (search_term, catalog_categories, model_categories, status, term_type, created_date, updated_date, edit_history)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (search_term) DO UPDATE SET
    catalog_categories = EXCLUDED.catalog_categories,
    model_categories = EXCLUDED.model_categories,
    status = EXCLUDED.status,
    term_type = EXCLUDED.term_type,
    updated_date = EXCLUDED.updated_date,
    edit_history = EXCLUDED.edit_history
`, rec.SearchTerm, row.catalog, row.model, rec.Status, rec.TermType, rec.CreatedDate, rec.UpdatedDate, row.history)
	metrics.ObserveNetworkRequest("postgres", "term_upsert", "search_term_categories", start, err)
	return err
}

// SaveTerm перезаписывает существующую запись; false если термин не найден.
func (p *Postgres) SaveTerm(ctx context.Context, rec domain.TermRecord) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	row, err := marshalTerm(rec)
	if err != nil {
		return false, err
	}

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE search_term_categories SET
    catalog_categories = $2,
    model_categories = $3,
    status = $4,
    term_type = $5,
    updated_date = $6,
    edit_history = $7
WHERE search_term = $1
`, rec.SearchTerm, row.catalog, row.model, rec.Status, rec.TermType, rec.UpdatedDate, row.history)
	metrics.ObserveNetworkRequest("postgres", "term_save", "search_term_categories", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteTerm безусловно удаляет запись; false если термин не найден.
func (p *Postgres) DeleteTerm(ctx context.Context, term string) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
DELETE FROM search_term_categories WHERE search_term = $1
`, term)
	metrics.ObserveNetworkRequest("postgres", "term_delete", "search_term_categories", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetTrend реализует domain.TrendRepo.
func (p *Postgres) GetTrend(ctx context.Context, term string) (domain.TrendRecord, bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var rec domain.TrendRecord
	err := p.pool.QueryRow(ctx, `
SELECT search_term, ctr, cvr, timestamps, trend_type, last_updated
FROM search_term_trends
WHERE search_term = $1
`, term).Scan(&rec.SearchTerm, &rec.CTR, &rec.CVR, &rec.Timestamps, &rec.TrendType, &rec.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "trend_get", "search_term_trends", start, nil)
		return domain.TrendRecord{}, false, nil
	}
	metrics.ObserveNetworkRequest("postgres", "trend_get", "search_term_trends", start, err)
	if err != nil {
		return domain.TrendRecord{}, false, err
	}
	return rec, true, nil
}

// UpsertTrend сохраняет ряды тренда термина.
func (p *Postgres) UpsertTrend(ctx context.Context, rec domain.TrendRecord) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO search_term_trends (search_term, ctr, cvr, timestamps, trend_type, last_updated)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (search_term) DO UPDATE SET
    ctr = EXCLUDED.ctr,
    cvr = EXCLUDED.cvr,
    timestamps = EXCLUDED.timestamps,
    trend_type = EXCLUDED.trend_type,
    last_updated = EXCLUDED.last_updated
`, rec.SearchTerm, rec.CTR, rec.CVR, rec.Timestamps, rec.TrendType, rec.LastUpdated)
	metrics.ObserveNetworkRequest("postgres", "trend_upsert", "search_term_trends", start, err)
	return err
}

// ReplaceCategories атомарно замещает каталог новым срезом.
func (p *Postgres) ReplaceCategories(ctx context.Context, categories []domain.CategoryRef) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "taxonomy_replace", "c3_categories", start, err)
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM c3_categories`); err != nil {
		metrics.ObserveNetworkRequest("postgres", "taxonomy_replace", "c3_categories", start, err)
		return err
	}
	for _, cat := range categories {
		if _, err := tx.Exec(ctx, `
INSERT INTO c3_categories (code, name) VALUES ($1, $2)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
`, cat.Code, cat.Name); err != nil {
			metrics.ObserveNetworkRequest("postgres", "taxonomy_replace", "c3_categories", start, err)
			return err
		}
	}
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "taxonomy_replace", "c3_categories", start, err)
	return err
}

// ListCategories возвращает каталог листовых категорий.
func (p *Postgres) ListCategories(ctx context.Context) ([]domain.CategoryRef, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT code, name FROM c3_categories ORDER BY name
`)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "taxonomy_list", "c3_categories", start, err)
		return nil, err
	}
	defer rows.Close()

	var categories []domain.CategoryRef
	for rows.Next() {
		var cat domain.CategoryRef
		if err := rows.Scan(&cat.Code, &cat.Name); err != nil {
			metrics.ObserveNetworkRequest("postgres", "taxonomy_list", "c3_categories", start, err)
			return nil, err
		}
		categories = append(categories, cat)
	}
	err = rows.Err()
	metrics.ObserveNetworkRequest("postgres", "taxonomy_list", "c3_categories", start, err)
	if err != nil {
		return nil, err
	}
	return categories, nil
}
