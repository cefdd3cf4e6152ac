package compare

import (
	"context"

	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
)

// productLimit — максимум товаров на каждую сторону сравнения.
const productLimit = 40

// Side — одна сторона сравнения выдачи.
type Side struct {
	Products []domain.Product `json:"products"`
	Err      string           `json:"error,omitempty"`
}

// Result — сравнение контрольной выдачи и выдачи по категориям модели.
type Result struct {
	SearchTerm string   `json:"search_term"`
	Categories []string `json:"categories"`
	Control    Side     `json:"control"`
	AI         Side     `json:"ai"`
}

// Service строит сравнение двух поисковых выдач.
type Service struct {
	terms    domain.TermRepo
	products domain.ProductFetcher
	limit    int
	log      zerolog.Logger
}

// NewService создаёт сервис сравнения.
func NewService(terms domain.TermRepo, products domain.ProductFetcher, limit int, logger zerolog.Logger) *Service {
	if limit <= 0 {
		limit = productLimit
	}
	return &Service{
		terms:    terms,
		products: products,
		limit:    limit,
		log:      logger.With().Str("component", "compare").Logger(),
	}
}

// Compare возвращает контрольную выдачу по сырому термину и выдачу по
// активным категориям модели. Ошибки сторон независимы: сбой одной не
// отменяет другую. false — термин не найден.
func (s *Service) Compare(ctx context.Context, term string) (Result, bool, error) {
	rec, ok, err := s.terms.GetTerm(ctx, term)
	if err != nil || !ok {
		return Result{}, ok, err
	}

	active := activeCategories(rec.ModelCategories)
	result := Result{SearchTerm: term, Categories: active}

	control, err := s.products.FetchProducts(ctx, domain.ProductQuery{
		SearchTerm: term,
		Limit:      s.limit,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("term", term).Msg("контрольная выдача не получена")
		result.Control.Err = err.Error()
	} else {
		result.Control.Products = control
	}

	ai, err := s.products.FetchProducts(ctx, domain.ProductQuery{
		Categories: active,
		Limit:      s.limit,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("term", term).Msg("выдача по категориям не получена")
		result.AI.Err = err.Error()
	} else {
		result.AI.Products = ai
	}

	return result, true, nil
}

// activeCategories возвращает коды категорий с положительным весом.
func activeCategories(categories []domain.ModelCategory) []string {
	var codes []string
	for _, cat := range categories {
		if cat.BoostValue > 0 {
			codes = append(codes, cat.Code)
		}
	}
	return codes
}
