// internal/pricing/implementation.go
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gymnexus/internal/gymerr"
)

// service implements the Service interface.
type service struct {
	mu      sync.RWMutex
	prices  Prices
	history []Change

	pin    *pinDigest
	now    func() time.Time
	logger logrus.FieldLogger
}

// NewService creates a price catalog. Updates require pin; an empty pin
// locks the catalog so every update is rejected.
func NewService(initial Prices, pin string, now func() time.Time, logger logrus.FieldLogger) (Service, error) {
	for _, item := range []Item{ItemMembership, ItemSingleEntry, ItemSpecialSession} {
		amount, _ := initial.Of(item)
		if amount <= 0 {
			return nil, fmt.Errorf("%w: %s price %d", gymerr.ErrInvalidAmount, item, amount)
		}
	}
	s := &service{prices: initial, now: now, logger: logger}
	if pin != "" {
		d, err := hashPIN(pin)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin pin: %w", err)
		}
		s.pin = &d
	}
	return s, nil
}

func (s *service) Prices(ctx context.Context) Prices {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices
}

func (s *service) Price(ctx context.Context, item Item) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.Of(item)
}

// UpdatePrice sets a new price for item after checking the admin PIN.
func (s *service) UpdatePrice(ctx context.Context, pin string, item Item, amount int64) (*Change, error) {
	if s.pin == nil {
		return nil, fmt.Errorf("%w: price catalog is locked", gymerr.ErrUnauthorized)
	}
	ok, err := s.pin.matches(pin)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.WithField("item", item).Warn("price update rejected: wrong pin")
		return nil, fmt.Errorf("%w: wrong admin pin", gymerr.ErrUnauthorized)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %d", gymerr.ErrInvalidAmount, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.prices.Of(item)
	if err != nil {
		return nil, err
	}
	s.prices.set(item, amount)

	change := Change{Item: item, Previous: previous, Current: amount, At: s.now()}
	s.history = append(s.history, change)

	s.logger.WithFields(logrus.Fields{
		"item":     item,
		"previous": previous,
		"current":  amount,
	}).Info("price updated")
	return &change, nil
}

func (s *service) History(ctx context.Context) []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Change(nil), s.history...)
}
