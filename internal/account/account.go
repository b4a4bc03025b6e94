// Package account backs the signed-in user's pages: saved addresses,
// order history and the locally cached profile.
package account

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AccountAPI interface {
	ListAddresses(ctx context.Context, token string) ([]domain.ShippingAddress, error)
	AddAddress(ctx context.Context, token string, addr domain.ShippingAddress) (domain.ShippingAddress, error)
	DeleteAddress(ctx context.Context, token, id string) error
	MyOrders(ctx context.Context, token string) ([]domain.Order, error)
	GetOrder(ctx context.Context, token, id string) (domain.Order, error)
}

// Session is what the account views need from the auth holder.
type Session interface {
	Token() (string, error)
	HandleUnauthorized(ctx context.Context)
}

// ErrAddressInFlight is returned while a previous address save has not finished.
var ErrAddressInFlight = errors.New("address save already in flight")

type Service struct {
	api     AccountAPI
	session Session
	slots   storage.Slots
	log     logrus.FieldLogger

	adding atomic.Bool
}

func NewService(accountAPI AccountAPI, session Session, slots storage.Slots, log logrus.FieldLogger) *Service {
	return &Service{api: accountAPI, session: session, slots: slots, log: log.WithField("component", "account")}
}

// authorized runs fn with the bearer token and drops the session on a 401.
func (s *Service) authorized(ctx context.Context, fn func(token string) error) error {
	token, err := s.session.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrUnauthorized, err)
	}
	if err := fn(token); err != nil {
		if api.IsAuth(err) {
			s.log.Info("token rejected, dropping session")
			s.session.HandleUnauthorized(ctx)
		}
		return err
	}
	return nil
}

func (s *Service) Addresses(ctx context.Context) ([]domain.ShippingAddress, error) {
	var out []domain.ShippingAddress
	err := s.authorized(ctx, func(token string) error {
		var err error
		out, err = s.api.ListAddresses(ctx, token)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list addresses failed: %w", err)
	}
	if out == nil {
		out = []domain.ShippingAddress{}
	}
	return out, nil
}

// AddAddress validates required fields and assigns a fresh id before saving.
// A second save while one is pending gets ErrAddressInFlight.
func (s *Service) AddAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	if missing := addr.Missing(); len(missing) > 0 {
		return domain.ShippingAddress{}, api.NewValidationError(missing...)
	}
	if !s.adding.CompareAndSwap(false, true) {
		return domain.ShippingAddress{}, ErrAddressInFlight
	}
	defer s.adding.Store(false)
	addr.ID = uuid.NewString()

	var saved domain.ShippingAddress
	err := s.authorized(ctx, func(token string) error {
		var err error
		saved, err = s.api.AddAddress(ctx, token, addr)
		return err
	})
	if err != nil {
		return domain.ShippingAddress{}, fmt.Errorf("add address failed: %w", err)
	}
	if saved.ID == "" {
		saved.ID = addr.ID
	}
	return saved, nil
}

func (s *Service) DeleteAddress(ctx context.Context, id string) error {
	if id == "" {
		return api.NewValidationError("id")
	}
	err := s.authorized(ctx, func(token string) error {
		return s.api.DeleteAddress(ctx, token, id)
	})
	if err != nil {
		return fmt.Errorf("delete address %s failed: %w", id, err)
	}
	return nil
}

func (s *Service) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	err := s.authorized(ctx, func(token string) error {
		var err error
		out, err = s.api.MyOrders(ctx, token)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list orders failed: %w", err)
	}
	if out == nil {
		out = []domain.Order{}
	}
	return out, nil
}

func (s *Service) Order(ctx context.Context, id string) (domain.Order, error) {
	var out domain.Order
	err := s.authorized(ctx, func(token string) error {
		var err error
		out, err = s.api.GetOrder(ctx, token, id)
		return err
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s failed: %w", id, err)
	}
	return out, nil
}

// Profile returns the cached profile. An absent or unreadable slot gives an empty profile.
func (s *Service) Profile(ctx context.Context) domain.Profile {
	var p domain.Profile
	if err := storage.GetJSON(ctx, s.slots, storage.SlotProfile, &p); err != nil {
		if !errors.Is(err, storage.ErrSlotEmpty) {
			s.log.WithError(err).Warn("cached profile unreadable")
		}
		return domain.Profile{}
	}
	return p
}

func (s *Service) SaveProfile(ctx context.Context, p domain.Profile) error {
	if err := storage.PutJSON(ctx, s.slots, storage.SlotProfile, p); err != nil {
		return fmt.Errorf("save profile failed: %w", err)
	}
	return nil
}
