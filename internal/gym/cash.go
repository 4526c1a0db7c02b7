// internal/gym/cash.go
package gym

import (
	"context"
	"fmt"
	"time"

	"gymnexus/internal/clients"
	"gymnexus/internal/gymerr"
	"gymnexus/internal/ledger"
	"gymnexus/internal/membership"
	"gymnexus/internal/pricing"
)

const singleEntryReason = "single entry"

// CheckIn records a client walking in with the payment state of their
// membership at that moment.
func (s *service) CheckIn(ctx context.Context, clientID int, reason string) (_ *ledger.EntryRecord, err error) {
	defer func() { s.done("check_in", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.registry.Get(clientID)
	if err != nil {
		return nil, err
	}
	return s.enter(ctx, c, reason)
}

func (s *service) enter(ctx context.Context, c *clients.Client, reason string) (*ledger.EntryRecord, error) {
	rec, err := s.ledger.AppendEntry(ctx, ledger.EntryRecord{
		ClientID:   c.ID,
		ExternalID: c.ExternalID,
		Name:       c.Name,
		Membership: membership.Payment(c.Membership),
		Reason:     reason,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.EntryRecorded(string(rec.Membership))
	return &rec, nil
}

// SellSingleEntry charges one visit. With a client id the visit is also
// written to the entry log.
func (s *service) SellSingleEntry(ctx context.Context, clientID *int, reason string) (_ *SingleEntrySale, err error) {
	defer func() { s.done("sell_single_entry", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	var c *clients.Client
	if clientID != nil {
		if c, err = s.registry.Get(*clientID); err != nil {
			return nil, err
		}
	}

	rec, err := s.charge(ctx, pricing.ItemSingleEntry, ledger.CategorySingleEntry)
	if err != nil {
		return nil, err
	}
	out := &SingleEntrySale{Charge: *rec}
	if c == nil {
		return out, nil
	}

	if reason == "" {
		reason = singleEntryReason
	}
	entry, err := s.enter(ctx, c, reason)
	if err != nil {
		s.logger.WithError(err).WithField("client_id", c.ID).Error("single entry charged but entry not recorded")
		return out, fmt.Errorf("record entry after charge: %w", err)
	}
	out.Entry = entry
	return out, nil
}

// Deposit adds cash to the till.
func (s *service) Deposit(ctx context.Context, amount int64) (_ *ledger.CashRecord, err error) {
	defer func() { s.done("deposit", err) }()
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit must be positive, got %d", gymerr.ErrInvalidAmount, amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ledger.AppendCash(ctx, amount, ledger.CategoryDeposit)
	if err != nil {
		return nil, err
	}
	s.metrics.CashAppended(string(ledger.CategoryDeposit), amount)
	return &rec, nil
}

func (s *service) Balance(ctx context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance()
}

func (s *service) MonthlyReport(ctx context.Context, month, year int) (*ledger.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { s.metrics.ObserveReport("monthly", time.Since(start)) }()
	return s.ledger.MonthlyReport(ctx, month, year)
}

func (s *service) DailyReport(ctx context.Context, date time.Time) (*ledger.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { s.metrics.ObserveReport("daily", time.Since(start)) }()
	return s.ledger.DailyReport(ctx, date)
}

func (s *service) EntryHistogram(ctx context.Context, month, year, weekdayOfFirst int) (*ledger.EntryHistogram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { s.metrics.ObserveReport("entries", time.Since(start)) }()
	return s.ledger.EntryHistogram(ctx, month, year, weekdayOfFirst)
}

func (s *service) Prices(ctx context.Context) pricing.Prices {
	return s.prices.Prices(ctx)
}

func (s *service) UpdatePrice(ctx context.Context, pin string, item pricing.Item, amount int64) (_ *pricing.Change, err error) {
	defer func() { s.done("update_price", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.prices.UpdatePrice(ctx, pin, item, amount)
}
