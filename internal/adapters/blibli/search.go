package blibli

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"semantic-sensei/internal/domain"
)

const searchPath = "/backend/search/products"

// topCategories — сколько каталожных категорий берётся из фасета.
const topCategories = 5

type facetFilter struct {
	Name string      `json:"name"`
	Data []facetNode `json:"data"`
}

type facetNode struct {
	Value       string      `json:"value"`
	Label       string      `json:"label"`
	Count       int         `json:"count"`
	Level       int         `json:"level"`
	SubCategory []facetNode `json:"subCategory"`
}

type facetResponse struct {
	Data struct {
		Filters []facetFilter `json:"filters"`
	} `json:"data"`
}

// FetchCategories возвращает топ каталожных категорий из фасета "Kategori"
// поисковой выдачи. Отсутствие фасета — не ошибка, а пустой результат.
func (c *Client) FetchCategories(ctx context.Context, term string) ([]domain.CatalogCategory, error) {
	params := url.Values{}
	params.Set("searchTerm", term)
	params.Set("facetOnly", "true")
	params.Set("page", "1")
	params.Set("start", "0")
	params.Set("merchantSearch", "true")
	params.Set("multiCategory", "true")
	params.Set("intent", "true")
	params.Set("channelId", c.cfg.ChannelID)
	params.Set("firstLoad", "true")

	var resp facetResponse
	if err := c.getJSON(ctx, "fetch_facet", searchPath, params, &resp); err != nil {
		return nil, fmt.Errorf("fetch facet for %q: %w", term, err)
	}

	for _, filter := range resp.Data.Filters {
		if filter.Name == "Kategori" {
			return extractLeafCategories(filter, topCategories), nil
		}
	}
	return nil, nil
}

// extractLeafCategories обходит вложенность C1→C2→C3, оставляет level==3,
// сортирует по count по убыванию и обрезает до topN.
func extractLeafCategories(filter facetFilter, topN int) []domain.CatalogCategory {
	var leaves []domain.CatalogCategory
	for _, c1 := range filter.Data {
		for _, c2 := range c1.SubCategory {
			for _, c3 := range c2.SubCategory {
				if c3.Level != 3 {
					continue
				}
				leaves = append(leaves, domain.CatalogCategory{
					Code:  c3.Value,
					Name:  c3.Label,
					Count: c3.Count,
				})
			}
		}
	}
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].Count > leaves[j].Count })
	if len(leaves) > topN {
		leaves = leaves[:topN]
	}
	return leaves
}
