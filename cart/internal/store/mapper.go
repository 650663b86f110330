package store

import "github.com/Alturino/storefront/cart/pkg/response"

func (l Line) Response() response.CartLine {
	return response.CartLine{
		ProductId: l.ProductID,
		Title:     l.Title,
		Price:     l.Price,
		Thumbnail: l.Thumbnail,
		Quantity:  l.Quantity,
		Subtotal:  l.Subtotal(),
	}
}

func (s Snapshot) Response() response.Cart {
	items := make([]response.CartLine, 0, len(s.Lines))
	for _, line := range s.Lines {
		items = append(items, line.Response())
	}
	return response.Cart{Items: items, Total: s.Total, ItemsCount: s.ItemsCount}
}
