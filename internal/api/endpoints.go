package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/products", out: &products}); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/products/" + url.PathEscape(id), out: &p})
	return p, err
}

func (c *Client) CreateProduct(ctx context.Context, token string, in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/products", token: token, in: in, out: &p})
	return p, err
}

func (c *Client) UpdateProduct(ctx context.Context, token, id string, in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, request{method: http.MethodPut, path: "/api/products/" + url.PathEscape(id), token: token, in: in, out: &p})
	return p, err
}

func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/products/" + url.PathEscape(id), token: token})
}

// UserInfo is the login/register answer of the auth service.
type UserInfo struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

func (c *Client) Login(ctx context.Context, email, password string) (UserInfo, error) {
	var u UserInfo
	in := map[string]string{"email": email, "password": password}
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/users/login", in: in, out: &u})
	return u, err
}

func (c *Client) Register(ctx context.Context, name, email, password string) (UserInfo, error) {
	var u UserInfo
	in := map[string]string{"name": name, "email": email, "password": password}
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/users", in: in, out: &u})
	return u, err
}

// OrderRequest is the order payload. Money is sent as JSON numbers.
type OrderRequest struct {
	OrderItems    []OrderLine         `json:"orderItems"`
	ShippingInfo  domain.ShippingInfo `json:"shippingInfo"`
	PaymentMethod string              `json:"paymentMethod"`
	ItemsPrice    float64             `json:"itemsPrice"`
	TaxPrice      float64             `json:"taxPrice"`
	ShippingPrice float64             `json:"shippingPrice"`
	TotalPrice    float64             `json:"totalPrice"`
	Notes         string              `json:"orderNotes,omitempty"`
}

type OrderLine struct {
	Name    string  `json:"name"`
	Qty     int     `json:"qty"`
	Image   string  `json:"image"`
	Price   float64 `json:"price"`
	Product string  `json:"product"`
}

func (c *Client) PlaceOrder(ctx context.Context, token, idempotencyKey string, in OrderRequest) (domain.Order, error) {
	var o domain.Order
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/api/orders",
		token:          token,
		idempotencyKey: idempotencyKey,
		in:             in,
		out:            &o,
	})
	return o, err
}

func (c *Client) MyOrders(ctx context.Context, token string) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/orders/myorders", token: token, out: &orders}); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, token, id string) (domain.Order, error) {
	var o domain.Order
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/orders/" + url.PathEscape(id), token: token, out: &o})
	return o, err
}

func (c *Client) ListAddresses(ctx context.Context, token string) ([]domain.ShippingAddress, error) {
	var out struct {
		Addresses []domain.ShippingAddress `json:"addresses"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/user/addresses", token: token, out: &out}); err != nil {
		return nil, err
	}
	return out.Addresses, nil
}

func (c *Client) AddAddress(ctx context.Context, token string, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	var out struct {
		NewAddress *domain.ShippingAddress `json:"newAddress"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/user/addresses", token: token, in: addr, out: &out}); err != nil {
		return domain.ShippingAddress{}, err
	}
	if out.NewAddress == nil {
		return addr, nil
	}
	return *out.NewAddress, nil
}

func (c *Client) DeleteAddress(ctx context.Context, token, id string) error {
	in := map[string]string{"id": id}
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/user/addresses", token: token, in: in})
}
