package blibli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/infra/metrics"
)

const categoriesPath = "/backend/content-api/categories"

// categoryNode — узел дерева категорий маркетплейса.
type categoryNode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CategoryCode string `json:"categoryCode"`
	Level        int    `json:"level"`
}

// categoryEnvelope терпимо разбирает ответ: либо массив узлов,
// либо объект с вложенным списком под одним из известных ключей.
type categoryEnvelope struct {
	nodes []categoryNode
}

func (e *categoryEnvelope) UnmarshalJSON(data []byte) error {
	var direct []categoryNode
	if err := json.Unmarshal(data, &direct); err == nil {
		e.nodes = direct
		return nil
	}
	var wrapped struct {
		Data       []categoryNode `json:"data"`
		Categories []categoryNode `json:"categories"`
		Children   []categoryNode `json:"children"`
		Items      []categoryNode `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("unexpected categories payload: %w", err)
	}
	switch {
	case wrapped.Data != nil:
		e.nodes = wrapped.Data
	case wrapped.Categories != nil:
		e.nodes = wrapped.Categories
	case wrapped.Children != nil:
		e.nodes = wrapped.Children
	default:
		e.nodes = wrapped.Items
	}
	return nil
}

// FetchLeafCategories обходит дерево C1→C2→C3 и возвращает
// дедуплицированный список листовых категорий.
func (c *Client) FetchLeafCategories(ctx context.Context) ([]domain.CategoryRef, error) {
	var rootEnv categoryEnvelope
	if err := c.getJSON(ctx, "fetch_categories", categoriesPath, nil, &rootEnv); err != nil {
		return nil, fmt.Errorf("fetch root categories: %w", err)
	}

	var roots []categoryNode
	for _, node := range rootEnv.nodes {
		if node.Level == 1 {
			roots = append(roots, node)
		}
	}
	c.log.Info().Int("count", len(roots)).Msg("корневые категории получены")

	var leaves []domain.CategoryRef
	for _, root := range roots {
		children, err := c.fetchChildren(ctx, root.ID)
		if err != nil {
			c.log.Warn().Err(err).Str("category", root.CategoryCode).Msg("не удалось получить подкатегории")
			metrics.ScrapeErrors.WithLabelValues("taxonomy").Inc()
			continue
		}
		for _, mid := range children {
			if mid.Level != 2 {
				continue
			}
			grandchildren, err := c.fetchChildren(ctx, mid.ID)
			if err != nil {
				c.log.Warn().Err(err).Str("category", mid.CategoryCode).Msg("не удалось получить листовые категории")
				metrics.ScrapeErrors.WithLabelValues("taxonomy").Inc()
				continue
			}
			for _, leaf := range grandchildren {
				if leaf.Level == 3 {
					leaves = append(leaves, domain.CategoryRef{Code: leaf.CategoryCode, Name: leaf.Name})
				}
			}
		}
	}
	return dedupeByCode(leaves), nil
}

func (c *Client) fetchChildren(ctx context.Context, categoryID string) ([]categoryNode, error) {
	var env categoryEnvelope
	path := categoriesPath + "/" + url.PathEscape(categoryID) + "/children"
	if err := c.getJSON(ctx, "fetch_children", path, nil, &env); err != nil {
		return nil, err
	}
	return env.nodes, nil
}

// dedupeByCode убирает дубли по коду, сохраняя первое вхождение.
func dedupeByCode(categories []domain.CategoryRef) []domain.CategoryRef {
	seen := make(map[string]struct{}, len(categories))
	out := categories[:0]
	for _, cat := range categories {
		if cat.Code == "" {
			continue
		}
		if _, ok := seen[cat.Code]; ok {
			continue
		}
		seen[cat.Code] = struct{}{}
		out = append(out, cat)
	}
	return out
}
