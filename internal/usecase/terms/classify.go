package terms

import "semantic-sensei/internal/domain"

// ClassifyTermType выводит тип конфигурации термина: если множества
// кодов каталожных и модельных категорий пересекаются — boosting,
// иначе filter.
func ClassifyTermType(catalog []domain.CatalogCategory, model []domain.ModelCategory) domain.TermType {
	codes := make(map[string]struct{}, len(catalog))
	for _, cat := range catalog {
		codes[cat.Code] = struct{}{}
	}
	for _, cat := range model {
		if _, ok := codes[cat.Code]; ok {
			return domain.TermTypeBoosting
		}
	}
	return domain.TermTypeFilter
}
