package catalog

import "github.com/Alturino/storefront/product/pkg/response"

func (p Product) Response() response.Product {
	return response.Product{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		Rating:             p.Rating,
		Stock:              p.Stock,
		Brand:              p.Brand,
		Category:           p.Category,
		Thumbnail:          p.Thumbnail,
		Images:             p.Images,
	}
}

// Response maps a page fetched with requestedLimit and skip, computing the
// pagination hints for the caller.
func (p Page) Response(requestedLimit, skip int) response.ProductPage {
	products := make([]response.Product, 0, len(p.Products))
	for _, product := range p.Products {
		products = append(products, product.Response())
	}
	return response.ProductPage{
		Products: products,
		Total:    p.Total,
		Skip:     skip,
		Limit:    requestedLimit,
		HasMore:  p.HasMore(requestedLimit, skip),
		NextSkip: NextSkip(requestedLimit, skip),
	}
}
