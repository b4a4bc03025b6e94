package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageRef    string          `json:"image"`
	Description string          `json:"description,omitempty"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"numReviews"`
	Category    string          `json:"category"`
}

// UnmarshalJSON accepts both the listing shape and the detail shape
// (title, rating_count, id) of the product service.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var aux struct {
		plain
		AltID       string `json:"id"`
		Title       string `json:"title"`
		RatingCount *int   `json:"rating_count"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Product(aux.plain)
	if p.ID == "" {
		p.ID = aux.AltID
	}
	if p.Name == "" {
		p.Name = aux.Title
	}
	if p.ReviewCount == 0 && aux.RatingCount != nil {
		p.ReviewCount = *aux.RatingCount
	}
	return nil
}

// ToLineItem converts the product into a cart line with the given quantity.
func (p Product) ToLineItem(qty int) CartLineItem {
	return CartLineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageRef:  p.ImageRef,
		Quantity:  qty,
	}
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageRef    string          `json:"image"`
	Description string          `json:"description,omitempty"`
	Rating      float64         `json:"rating"`
	ReviewCount int             `json:"numReviews"`
	Category    string          `json:"category"`
}

func (in ProductInput) Missing() []string {
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if in.Price.IsNegative() {
		missing = append(missing, "price")
	}
	if in.Rating < 0 || in.Rating > 5 {
		missing = append(missing, "rating")
	}
	return missing
}
