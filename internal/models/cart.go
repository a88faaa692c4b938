package models

// CartItem is a snapshot of a product taken when it was added to the cart.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	Price     float64 `json:"price"`
	Place     string  `json:"place"`
}

// NewCartItem copies the fields of p that the cart keeps.
func NewCartItem(p *Product) CartItem {
	return CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		Price:     p.Price,
		Place:     p.Place,
	}
}

// Cart is the read view of a session's items. Total is computed when the view is built.
type Cart struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// NewCart sums the item prices.
func NewCart(items []CartItem) Cart {
	cart := Cart{Items: make([]CartItem, len(items))}
	copy(cart.Items, items)
	for _, item := range items {
		cart.Total += item.Price
	}
	return cart
}
