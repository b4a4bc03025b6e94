// Package catalog reads the product listing from the remote service and
// narrows it locally.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ProductAPI is the subset of the remote client used by the catalog.
type ProductAPI interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, token string, in domain.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, token, id string, in domain.ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
}

const fetchTimeout = 15 * time.Second

type Client struct {
	api   ProductAPI
	group singleflight.Group
	log   logrus.FieldLogger

	mu        sync.RWMutex
	listing   []domain.Product
	fetchedAt time.Time
}

func NewClient(productAPI ProductAPI, log logrus.FieldLogger) *Client {
	return &Client{api: productAPI, log: log.WithField("component", "catalog")}
}

// ListProducts fetches the full listing and applies f. Concurrent fetches
// share a single request.
func (c *Client) ListProducts(ctx context.Context, f Filter) ([]domain.Product, error) {
	all, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(all, f), nil
}

// Listing returns the products as of the last successful fetch.
func (c *Client) Listing() ([]domain.Product, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Product(nil), c.listing...), c.fetchedAt
}

// fetch runs the shared request detached from any single caller, so one
// caller giving up does not fail the others waiting on it.
func (c *Client) fetch(ctx context.Context) ([]domain.Product, error) {
	ch := c.group.DoChan("products", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		products, err := c.api.ListProducts(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.listing = products
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		return products, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.log.WithError(res.Err).Warn("failed to fetch products")
			return nil, fmt.Errorf("list products failed: %w", res.Err)
		}
		if res.Shared {
			c.log.Debug("product fetch shared with a concurrent caller")
		}
		return append([]domain.Product(nil), res.Val.([]domain.Product)...), nil
	}
}

// GetProduct returns api.ErrNotFound for an unknown id.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, fmt.Errorf("get product: %w", api.ErrNotFound)
	}
	p, err := c.api.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s failed: %w", id, err)
	}
	return p, nil
}

func (c *Client) CreateProduct(ctx context.Context, token string, in domain.ProductInput) (domain.Product, error) {
	if missing := in.Missing(); len(missing) > 0 {
		return domain.Product{}, api.NewValidationError(missing...)
	}
	p, err := c.api.CreateProduct(ctx, token, in)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product failed: %w", err)
	}
	c.invalidate()
	return p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, token, id string, in domain.ProductInput) (domain.Product, error) {
	if missing := in.Missing(); len(missing) > 0 {
		return domain.Product{}, api.NewValidationError(missing...)
	}
	p, err := c.api.UpdateProduct(ctx, token, id, in)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %s failed: %w", id, err)
	}
	c.invalidate()
	return p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	if err := c.api.DeleteProduct(ctx, token, id); err != nil {
		return fmt.Errorf("delete product %s failed: %w", id, err)
	}
	c.invalidate()
	return nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.listing = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
