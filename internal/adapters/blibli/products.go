package blibli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"semantic-sensei/internal/domain"
)

type productsResponse struct {
	Data struct {
		Products []productItem `json:"products"`
	} `json:"data"`
}

type productItem struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	URL    string       `json:"url"`
	Images []imageValue `json:"images"`
	Price  priceInfo    `json:"price"`
	Review ratingValue  `json:"review"`
}

// imageValue — картинка приходит либо строкой, либо объектом {full}.
type imageValue struct {
	Full string
}

func (v *imageValue) UnmarshalJSON(data []byte) error {
	var direct string
	if err := json.Unmarshal(data, &direct); err == nil {
		v.Full = direct
		return nil
	}
	var obj struct {
		Full string `json:"full"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	v.Full = obj.Full
	return nil
}

// priceInfo — цена приходит либо числом, либо объектом; при объекте
// действует цепочка salePrice → minPrice → listPrice → offered → 0.
type priceInfo struct {
	Value float64
}

func (p *priceInfo) UnmarshalJSON(data []byte) error {
	var direct float64
	if err := json.Unmarshal(data, &direct); err == nil {
		p.Value = direct
		return nil
	}
	var obj struct {
		SalePrice float64 `json:"salePrice"`
		MinPrice  float64 `json:"minPrice"`
		ListPrice float64 `json:"listPrice"`
		Offered   float64 `json:"offered"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	switch {
	case obj.SalePrice > 0:
		p.Value = obj.SalePrice
	case obj.MinPrice > 0:
		p.Value = obj.MinPrice
	case obj.ListPrice > 0:
		p.Value = obj.ListPrice
	default:
		p.Value = obj.Offered
	}
	return nil
}

// ratingValue — рейтинг приходит либо числом, либо объектом {rating}.
type ratingValue struct {
	Rating float64
}

func (v *ratingValue) UnmarshalJSON(data []byte) error {
	var direct float64
	if err := json.Unmarshal(data, &direct); err == nil {
		v.Rating = direct
		return nil
	}
	var obj struct {
		Rating float64 `json:"rating"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	v.Rating = obj.Rating
	return nil
}

// FetchProducts возвращает нормализованную поисковую выдачу. Запрос
// составляется либо по сырому термину, либо только по кодам категорий.
func (c *Client) FetchProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("start", "0")
	params.Set("merchantSearch", "true")
	params.Set("multiCategory", "true")
	params.Set("channelId", c.cfg.ChannelID)
	params.Set("showFacet", "false")
	params.Set("isMobileBCA", "false")
	params.Set("isJual", "false")
	params.Set("firstLoad", "true")
	if query.SearchTerm != "" {
		params.Set("searchTerm", query.SearchTerm)
	}
	for _, code := range query.Categories {
		params.Add("category", code)
	}

	var resp productsResponse
	if err := c.getJSON(ctx, "fetch_products", searchPath, params, &resp); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	items := resp.Data.Products
	if len(items) > limit {
		items = items[:limit]
	}
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		image := ""
		if len(item.Images) > 0 {
			image = item.Images[0].Full
		}
		productURL := item.URL
		if productURL != "" {
			productURL = c.cfg.BaseURL + productURL
		}
		products = append(products, domain.Product{
			ID:     item.ID,
			Name:   item.Name,
			Image:  image,
			Price:  item.Price.Value,
			Rating: item.Review.Rating,
			URL:    productURL,
		})
	}
	return products, nil
}
