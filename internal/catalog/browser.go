package catalog

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Result is what a view displays after a load.
type Result struct {
	Filter   Filter
	Products []domain.Product
	Err      error
}

// Browser drives a product view. Only the most recent Load may publish its
// result, earlier in-flight loads are canceled and their results dropped.
type Browser struct {
	client *Client

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current Result
}

func NewBrowser(client *Client) *Browser {
	return &Browser{client: client}
}

// Load fetches with f. It reports false when a newer Load superseded it.
func (b *Browser) Load(ctx context.Context, f Filter) (Result, bool) {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()
	defer cancel()

	products, err := b.client.ListProducts(ctx, f)
	res := Result{Filter: f, Products: products, Err: err}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return res, false
	}
	b.current = res
	b.cancel = nil
	return res, true
}

// Current is the last published result.
func (b *Browser) Current() Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
