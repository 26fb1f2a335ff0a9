package models

// CartItem is a cart line. Lines are identified by product name.
type CartItem struct {
	ProductID string  `bson:"productId" json:"productId" firestore:"productId"`
	Name      string  `bson:"name" json:"name" firestore:"name"`
	Price     float64 `bson:"price" json:"price" firestore:"price"`
	Category  string  `bson:"category" json:"category" firestore:"category"`
	Image     string  `bson:"image" json:"image" firestore:"image"`
	Quantity  int     `bson:"quantity" json:"quantity" firestore:"quantity"`
}

func NewCartItem(p Product) CartItem {
	return CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Category:  p.Category,
		Image:     p.Image,
		Quantity:  1,
	}
}
