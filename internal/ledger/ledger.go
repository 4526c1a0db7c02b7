// internal/ledger/ledger.go
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymnexus/internal/gymerr"
)

// Ledger appends cash movements and entry events to two logs and keeps a
// running cash balance. Reports are always rebuilt by replaying the logs.
type Ledger struct {
	cash    Log
	entries Log
	now     func() time.Time
	opening int64
	logger  logrus.FieldLogger
	tracer  trace.Tracer

	mu      sync.Mutex
	balance int64
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithOpeningBalance sets the cash held before the first record.
func WithOpeningBalance(amount int64) Option {
	return func(l *Ledger) { l.opening = amount }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func New(cash, entries Log, opts ...Option) *Ledger {
	l := &Ledger{
		cash:    cash,
		entries: entries,
		now:     time.Now,
		logger:  logrus.StandardLogger(),
		tracer:  otel.Tracer("gymnexus/ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.balance = l.opening
	return l
}

// stamp drops sub-second precision so a record reads back exactly as it
// was written.
func (l *Ledger) stamp() time.Time {
	return l.now().Truncate(time.Second)
}

// AppendCash records a cash movement at the current time.
func (l *Ledger) AppendCash(ctx context.Context, amount int64, category Category) (CashRecord, error) {
	if amount < 0 {
		return CashRecord{}, fmt.Errorf("%w: %d", gymerr.ErrInvalidAmount, amount)
	}
	if !category.Valid() {
		return CashRecord{}, fmt.Errorf("%w: unknown cash category %q", gymerr.ErrInvalidFormat, category)
	}

	ctx, span := l.tracer.Start(ctx, "ledger.append_cash", trace.WithAttributes(
		attribute.String("ledger.category", string(category)),
		attribute.Int64("ledger.amount", amount),
	))
	defer span.End()

	rec := CashRecord{At: l.stamp(), Category: category, Amount: amount}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.cash.Append(ctx, rec.Line()); err != nil {
		span.RecordError(err)
		return CashRecord{}, fmt.Errorf("append cash record: %w", err)
	}
	l.balance += amount

	l.logger.WithFields(logrus.Fields{
		"category": category,
		"amount":   amount,
		"balance":  l.balance,
	}).Info("cash record appended")
	return rec, nil
}

// AppendEntry stamps rec with the current time and appends it to the
// entry log.
func (l *Ledger) AppendEntry(ctx context.Context, rec EntryRecord) (EntryRecord, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.append_entry", trace.WithAttributes(
		attribute.Int("client.id", rec.ClientID),
	))
	defer span.End()

	rec.At = l.stamp()
	if err := l.entries.Append(ctx, rec.Line()); err != nil {
		span.RecordError(err)
		return EntryRecord{}, fmt.Errorf("append entry record: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"client_id":  rec.ClientID,
		"membership": rec.Membership,
	}).Info("entry recorded")
	return rec, nil
}

// Balance is the opening cash plus every amount appended.
func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Rebuild recomputes the balance from the cash log. Malformed lines are
// skipped and their line numbers returned.
func (l *Ledger) Rebuild(ctx context.Context) ([]int, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.rebuild")
	defer span.End()

	var (
		sum     int64
		skipped []int
	)
	err := l.replayCash(ctx, func(rec CashRecord) { sum += rec.Amount }, &skipped)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	l.mu.Lock()
	l.balance = l.opening + sum
	l.mu.Unlock()
	return skipped, nil
}

func (l *Ledger) replayCash(ctx context.Context, fn func(CashRecord), skipped *[]int) error {
	err := l.cash.Replay(ctx, func(n int, line string) error {
		rec, err := ParseCashRecord(line)
		if err != nil {
			l.skip("cash", n, err, skipped)
			return nil
		}
		fn(rec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay cash log: %w", err)
	}
	return nil
}

func (l *Ledger) replayEntries(ctx context.Context, fn func(EntryRecord), skipped *[]int) error {
	err := l.entries.Replay(ctx, func(n int, line string) error {
		rec, err := ParseEntryRecord(line)
		if err != nil {
			l.skip("entries", n, err, skipped)
			return nil
		}
		fn(rec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay entry log: %w", err)
	}
	return nil
}

func (l *Ledger) skip(log string, n int, err error, skipped *[]int) {
	*skipped = append(*skipped, n)
	l.logger.WithFields(logrus.Fields{
		"log":  log,
		"line": n,
	}).WithError(err).Warn("skipping malformed ledger line")
}
