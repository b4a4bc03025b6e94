package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShippingAddress struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	AddressLine string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
}

func (a ShippingAddress) Missing() []string {
	return missingFields(map[string]string{
		"fullName":   a.FullName,
		"address":    a.AddressLine,
		"city":       a.City,
		"state":      a.State,
		"postalCode": a.PostalCode,
		"country":    a.Country,
		"phone":      a.Phone,
	})
}

type OrderItem struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image"`
}

// Order is a placed order as returned by the order service. Immutable on the client.
type Order struct {
	ID              string          `json:"_id"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingInfo    `json:"shippingInfo"`
	PaymentMethod   string          `json:"paymentMethod"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	TaxAmount       decimal.Decimal `json:"taxPrice"`
	ShippingAmount  decimal.Decimal `json:"shippingPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	IsDelivered     bool            `json:"isDelivered"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func OrderItemsFromCart(items []CartLineItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			ImageRef:  it.ImageRef,
		})
	}
	return out
}
