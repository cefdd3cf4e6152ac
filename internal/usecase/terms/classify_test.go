package terms

import (
	"testing"

	"semantic-sensei/internal/domain"
)

func TestClassifyTermType(t *testing.T) {
	cases := []struct {
		name     string
		catalog  []domain.CatalogCategory
		model    []domain.ModelCategory
		expected domain.TermType
	}{
		{
			name:     "пересечение есть",
			catalog:  []domain.CatalogCategory{{Code: "PA-1"}, {Code: "PA-2"}},
			model:    []domain.ModelCategory{{Code: "PA-2"}, {Code: "PA-9"}},
			expected: domain.TermTypeBoosting,
		},
		{
			name:     "пересечения нет",
			catalog:  []domain.CatalogCategory{{Code: "PA-1"}},
			model:    []domain.ModelCategory{{Code: "PA-9"}},
			expected: domain.TermTypeFilter,
		},
		{
			name:     "пустой каталог",
			catalog:  nil,
			model:    []domain.ModelCategory{{Code: "PA-9"}},
			expected: domain.TermTypeFilter,
		},
		{
			name:     "пустые модельные",
			catalog:  []domain.CatalogCategory{{Code: "PA-1"}},
			model:    nil,
			expected: domain.TermTypeFilter,
		},
		{
			name:     "оба пустые",
			catalog:  nil,
			model:    nil,
			expected: domain.TermTypeFilter,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyTermType(tc.catalog, tc.model)
			if got != tc.expected {
				t.Fatalf("ожидали %s, получили %s", tc.expected, got)
			}
		})
	}
}
