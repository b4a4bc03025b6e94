// Package cart owns the shopping cart: the single authoritative CartState,
// its transitions and its persistence under the "cart" slot.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/sirupsen/logrus"
)

// Listener receives a snapshot after every committed transition.
type Listener func(domain.CartState)

type Store struct {
	mu    sync.Mutex
	state domain.CartState
	slots storage.Slots
	log   logrus.FieldLogger

	// notifyMu keeps notifications in transition order. Listeners must not
	// call back into the store synchronously.
	notifyMu  sync.Mutex
	subMu     sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// Open hydrates the cart from the durable slot. Missing or unreadable data
// yields an empty cart.
func Open(ctx context.Context, slots storage.Slots, log logrus.FieldLogger) *Store {
	s := &Store{
		state:     domain.EmptyCart(),
		slots:     slots,
		log:       log.WithField("component", "cart"),
		listeners: make(map[int]Listener),
	}
	s.state = s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) domain.CartState {
	data, err := s.slots.Get(ctx, storage.SlotCart)
	if errors.Is(err, storage.ErrSlotEmpty) {
		return domain.EmptyCart()
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to read persisted cart, starting empty")
		return domain.EmptyCart()
	}

	var persisted domain.CartState
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.log.WithError(err).Warn("persisted cart is malformed, starting empty")
		return domain.EmptyCart()
	}
	if err := persisted.Validate(); err != nil {
		s.log.WithError(err).Warn("persisted cart is invalid, starting empty")
		return domain.EmptyCart()
	}
	// totals on disk are not trusted
	return domain.NewCartState(persisted.Items)
}

// State returns a copy of the current cart.
func (s *Store) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// AddItem merges by product id: an existing line gains the quantity, otherwise the item is appended.
func (s *Store) AddItem(ctx context.Context, item domain.CartLineItem) (domain.CartState, error) {
	return s.dispatch(ctx, action{kind: actionAdd, item: item})
}

// RemoveItem is a no-op for a product that is not in the cart.
func (s *Store) RemoveItem(ctx context.Context, productID string) (domain.CartState, error) {
	return s.dispatch(ctx, action{kind: actionRemove, productID: productID})
}

func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) (domain.CartState, error) {
	return s.dispatch(ctx, action{kind: actionUpdateQuantity, productID: productID, quantity: quantity})
}

func (s *Store) Clear(ctx context.Context) (domain.CartState, error) {
	return s.dispatch(ctx, action{kind: actionClear})
}

// Subscribe registers fn for change notifications. The returned func unsubscribes.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.listeners, id)
		s.subMu.Unlock()
	}
}

func (s *Store) dispatch(ctx context.Context, a action) (domain.CartState, error) {
	s.mu.Lock()
	next, err := reduce(s.state, a)
	if err != nil {
		current := s.state.Clone()
		s.mu.Unlock()
		return current, err
	}
	s.state = next
	snapshot := next.Clone()
	persistErr := s.persist(ctx, next)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.log.WithFields(logrus.Fields{
		"action":     a.kind.String(),
		"items":      len(snapshot.Items),
		"item_count": snapshot.TotalItemCount,
		"total":      snapshot.TotalPrice.StringFixed(2),
	}).Debug("cart updated")

	s.notify(snapshot)
	return snapshot, persistErr
}

// persist runs under s.mu so slot writes happen in transition order.
func (s *Store) persist(ctx context.Context, state domain.CartState) error {
	if err := storage.PutJSON(ctx, s.slots, storage.SlotCart, state); err != nil {
		s.log.WithError(err).Error("failed to persist cart")
		return fmt.Errorf("persist cart failed: %w", err)
	}
	return nil
}

func (s *Store) notify(state domain.CartState) {
	s.subMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.subMu.RUnlock()

	for _, l := range listeners {
		l(state.Clone())
	}
}
