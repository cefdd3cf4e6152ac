package domain

import (
	"context"
	"time"
)

// TermRepo — хранилище записей поисковых терминов.
type TermRepo interface {
	// GetTerm возвращает запись и признак её существования.
	GetTerm(ctx context.Context, term string) (TermRecord, bool, error)
	// ListTerms возвращает страницу записей по подстроке термина
	// (без учёта регистра) и общее число совпадений.
	ListTerms(ctx context.Context, query string, limit, offset int) ([]TermRecord, int, error)
	// ListTermsWithModelCategories возвращает термины, у которых есть
	// хотя бы одна модельная категория.
	ListTermsWithModelCategories(ctx context.Context) ([]TermRecord, error)
	// ListTermsWithoutCatalog возвращает термины без каталожных категорий.
	ListTermsWithoutCatalog(ctx context.Context) ([]string, error)
	// UpsertTerm создаёт запись или полностью замещает существующую.
	UpsertTerm(ctx context.Context, rec TermRecord) error
	// SaveTerm перезаписывает существующую запись; false если термин не найден.
	SaveTerm(ctx context.Context, rec TermRecord) (bool, error)
	// DeleteTerm безусловно удаляет запись; false если термин не найден.
	DeleteTerm(ctx context.Context, term string) (bool, error)
}

// TrendRepo — хранилище рядов CTR/CVR.
type TrendRepo interface {
	GetTrend(ctx context.Context, term string) (TrendRecord, bool, error)
	UpsertTrend(ctx context.Context, rec TrendRecord) error
}

// TaxonomyRepo — каталог листовых категорий маркетплейса.
type TaxonomyRepo interface {
	// ReplaceCategories атомарно замещает каталог новым срезом.
	ReplaceCategories(ctx context.Context, categories []CategoryRef) error
	ListCategories(ctx context.Context) ([]CategoryRef, error)
}

// Classifier — клиент сервиса классификации терминов.
type Classifier interface {
	Classify(ctx context.Context, term string) (Classification, error)
}

// CatalogFetcher возвращает топ каталожных категорий термина из фасета поиска.
type CatalogFetcher interface {
	FetchCategories(ctx context.Context, term string) ([]CatalogCategory, error)
}

// TaxonomyFetcher обходит дерево категорий маркетплейса и возвращает
// дедуплицированный список листовых категорий.
type TaxonomyFetcher interface {
	FetchLeafCategories(ctx context.Context) ([]CategoryRef, error)
}

// ProductFetcher возвращает нормализованную поисковую выдачу маркетплейса.
type ProductFetcher interface {
	FetchProducts(ctx context.Context, query ProductQuery) ([]Product, error)
}

// Cache используется для простых TTL-хранилищ с явной инвалидацией.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Del(key string) error
}
