package terms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/infra/metrics"
)

// ErrDuplicateCategory возвращается при добавлении уже существующего кода.
var ErrDuplicateCategory = errors.New("category already present")

// autoLockDays — сколько подряд идущих дней роста CTR переводит термин
// в терминальный статус locked.
const autoLockDays = 5

// growthSource отдаёт число подряд идущих дней роста CTR термина.
type growthSource interface {
	GrowthDays(ctx context.Context, term string) (int, error)
}

// Service реализует операции аналитика над записями терминов.
type Service struct {
	terms        domain.TermRepo
	growth       growthSource
	defaultBoost int
	log          zerolog.Logger
}

// NewService создаёт сервис терминов.
func NewService(terms domain.TermRepo, growth growthSource, defaultBoost int, logger zerolog.Logger) *Service {
	if defaultBoost <= 0 {
		defaultBoost = 100
	}
	return &Service{
		terms:        terms,
		growth:       growth,
		defaultBoost: defaultBoost,
		log:          logger.With().Str("component", "terms").Logger(),
	}
}

// Get возвращает запись термина; false если термина нет.
func (s *Service) Get(ctx context.Context, term string) (domain.TermRecord, bool, error) {
	return s.terms.GetTerm(ctx, term)
}

// List возвращает страницу записей по подстроке и общее число совпадений.
func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]domain.TermRecord, int, error) {
	return s.terms.ListTerms(ctx, query, limit, offset)
}

// appendEdit добавляет ровно одно событие истории и сдвигает updatedDate.
func appendEdit(rec *domain.TermRecord, action domain.EditAction, details string) {
	now := time.Now().UTC()
	rec.EditHistory = append(rec.EditHistory, domain.EditEvent{
		Timestamp: now,
		Action:    action,
		Details:   details,
	})
	rec.UpdatedDate = now
}

// UpdateBoost меняет вес категории; false если термин или код не найдены.
func (s *Service) UpdateBoost(ctx context.Context, term, code string, boost int) (bool, error) {
	rec, ok, err := s.terms.GetTerm(ctx, term)
	if err != nil || !ok {
		return ok, err
	}
	found := false
	for i := range rec.ModelCategories {
		if rec.ModelCategories[i].Code == code {
			old := rec.ModelCategories[i].BoostValue
			rec.ModelCategories[i].BoostValue = boost
			appendEdit(&rec, domain.EditBoostUpdate, fmt.Sprintf("%s: boost %d -> %d", code, old, boost))
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}
	if err := s.autoLock(ctx, &rec); err != nil {
		s.log.Warn().Err(err).Str("term", term).Msg("не удалось проверить автоблокировку")
	}
	saved, err := s.terms.SaveTerm(ctx, rec)
	if err != nil || !saved {
		return saved, err
	}
	metrics.IncTermMutation(string(domain.EditBoostUpdate))
	return true, nil
}

// AddCategory добавляет ручную категорию со score 0. Отрицательный boost
// заменяется весом по умолчанию. Дубль кода отклоняется без правок
// с ошибкой ErrDuplicateCategory; false — термин не найден.
func (s *Service) AddCategory(ctx context.Context, term, code, name string, boost int) (bool, error) {
	rec, ok, err := s.terms.GetTerm(ctx, term)
	if err != nil || !ok {
		return ok, err
	}
	for _, cat := range rec.ModelCategories {
		if cat.Code == code {
			return false, ErrDuplicateCategory
		}
	}
	if boost < 0 {
		boost = s.defaultBoost
	}
	rec.ModelCategories = append(rec.ModelCategories, domain.ModelCategory{
		Code:       code,
		Name:       name,
		Score:      0,
		BoostValue: boost,
	})
	rec.TermType = ClassifyTermType(rec.CatalogCategories, rec.ModelCategories)
	appendEdit(&rec, domain.EditCategoryAdded, fmt.Sprintf("%s (%s)", code, name))
	if err := s.autoLock(ctx, &rec); err != nil {
		s.log.Warn().Err(err).Str("term", term).Msg("не удалось проверить автоблокировку")
	}
	saved, err := s.terms.SaveTerm(ctx, rec)
	if err != nil || !saved {
		return saved, err
	}
	metrics.IncTermMutation(string(domain.EditCategoryAdded))
	return true, nil
}

// RemoveCategory убирает категорию; false если термин или код не найдены.
func (s *Service) RemoveCategory(ctx context.Context, term, code string) (bool, error) {
	rec, ok, err := s.terms.GetTerm(ctx, term)
	if err != nil || !ok {
		return ok, err
	}
	idx := -1
	for i, cat := range rec.ModelCategories {
		if cat.Code == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	rec.ModelCategories = append(rec.ModelCategories[:idx], rec.ModelCategories[idx+1:]...)
	rec.TermType = ClassifyTermType(rec.CatalogCategories, rec.ModelCategories)
	appendEdit(&rec, domain.EditCategoryRemoved, code)
	if err := s.autoLock(ctx, &rec); err != nil {
		s.log.Warn().Err(err).Str("term", term).Msg("не удалось проверить автоблокировку")
	}
	saved, err := s.terms.SaveTerm(ctx, rec)
	if err != nil || !saved {
		return saved, err
	}
	metrics.IncTermMutation(string(domain.EditCategoryRemoved))
	return true, nil
}

// Promote выводит запись в основную выдачу: переводит её в locked и
// пишет событие promoted_to_main. Для уже заблокированной записи — no-op.
func (s *Service) Promote(ctx context.Context, term string) (bool, error) {
	rec, ok, err := s.terms.GetTerm(ctx, term)
	if err != nil || !ok {
		return ok, err
	}
	if rec.Status == domain.StatusLocked {
		return true, nil
	}
	rec.Status = domain.StatusLocked
	appendEdit(&rec, domain.EditPromoted, "")
	saved, err := s.terms.SaveTerm(ctx, rec)
	if err != nil || !saved {
		return saved, err
	}
	metrics.IncTermMutation(string(domain.EditPromoted))
	return true, nil
}

// Delete удаляет запись термина; ряды тренда не трогаются.
func (s *Service) Delete(ctx context.Context, term string) (bool, error) {
	ok, err := s.terms.DeleteTerm(ctx, term)
	if err == nil && ok {
		metrics.IncTermMutation("deleted")
	}
	return ok, err
}

// autoLock переводит запись в locked после autoLockDays подряд идущих
// дней роста CTR. Проверяется после каждой правки весов и категорий.
func (s *Service) autoLock(ctx context.Context, rec *domain.TermRecord) error {
	if rec.Status == domain.StatusLocked || s.growth == nil {
		return nil
	}
	days, err := s.growth.GrowthDays(ctx, rec.SearchTerm)
	if err != nil {
		return err
	}
	if days < autoLockDays {
		return nil
	}
	rec.Status = domain.StatusLocked
	appendEdit(rec, domain.EditAutoLocked, fmt.Sprintf("ctr grew %d days in a row", days))
	metrics.IncTermMutation(string(domain.EditAutoLocked))
	return nil
}
