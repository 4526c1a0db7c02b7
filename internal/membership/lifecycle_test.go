package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_Defaults(t *testing.T) {
	p := DefaultPolicy()
	today := day(2025, 6, 1)

	m, adj := p.New(today, nil, nil, false)
	require.Nil(t, adj)
	assert.Equal(t, today, m.Start)
	assert.Equal(t, day(2025, 7, 1), m.End)
	assert.False(t, m.Paid)
	assert.Equal(t, 30, m.DaysRemaining(today))
}

func TestNew_InconsistentEndIsRecomputed(t *testing.T) {
	p := DefaultPolicy()
	start := day(2025, 6, 1)
	end := day(2025, 6, 10)

	m, adj := p.New(start, &start, &end, true)
	require.NotNil(t, adj)
	assert.Equal(t, 9, adj.SuppliedDays)
	assert.Equal(t, day(2025, 7, 1), m.End)
	assert.Equal(t, adj.End, m.End)
	assert.Contains(t, adj.String(), "recomputed to 2025-07-01")
}

func TestNew_ConsistentEndIsKept(t *testing.T) {
	p := DefaultPolicy()
	start := day(2025, 6, 1)
	end := day(2025, 7, 1)

	m, adj := p.New(start, &start, &end, true)
	assert.Nil(t, adj)
	assert.Equal(t, end, m.End)
}

func TestDueForRenewal(t *testing.T) {
	p := DefaultPolicy()
	start := day(2025, 6, 1)
	m, _ := p.New(start, &start, nil, false)

	assert.False(t, m.DueForRenewal(day(2025, 8, 1)), "unpaid memberships are never due")

	require.True(t, m.Pay())
	assert.False(t, m.Pay(), "second payment is a no-op")
	assert.False(t, m.DueForRenewal(day(2025, 6, 30)))
	assert.True(t, m.DueForRenewal(day(2025, 7, 1)), "due on the day it expires")
	assert.True(t, m.DueForRenewal(day(2025, 7, 20)))
}

func TestRenew(t *testing.T) {
	p := DefaultPolicy()
	start := day(2025, 6, 1)
	m, _ := p.New(start, &start, nil, true)

	ok, _ := p.Renew(m, day(2025, 6, 15), nil, nil)
	assert.False(t, ok, "active membership cannot be renewed")
	assert.Equal(t, day(2025, 7, 1), m.End)

	today := day(2025, 7, 3)
	ok, adj := p.Renew(m, today, nil, nil)
	require.True(t, ok)
	assert.Nil(t, adj)
	assert.Equal(t, today, m.Start)
	assert.Equal(t, day(2025, 8, 2), m.End)
}

func TestRenew_UnpaidRejected(t *testing.T) {
	p := DefaultPolicy()
	start := day(2025, 1, 1)
	m, _ := p.New(start, &start, nil, false)

	ok, _ := p.Renew(m, day(2025, 6, 1), nil, nil)
	assert.False(t, ok)
	assert.Equal(t, day(2025, 1, 31), m.End)
}

func TestRenew_WithSuppliedWindow(t *testing.T) {
	p := DefaultPolicy()
	start := day(2025, 1, 1)
	m, _ := p.New(start, &start, nil, true)

	newStart := day(2025, 3, 1)
	badEnd := day(2025, 4, 15)
	ok, adj := p.Renew(m, day(2025, 3, 1), &newStart, &badEnd)
	require.True(t, ok)
	require.NotNil(t, adj)
	assert.Equal(t, 45, adj.SuppliedDays)
	assert.Equal(t, day(2025, 3, 31), m.End)
}

func TestValidityAndPayment(t *testing.T) {
	p := DefaultPolicy()
	start := day(2025, 6, 1)
	m, _ := p.New(start, &start, nil, false)

	assert.Equal(t, ValidityActive, p.Validity(m, day(2025, 6, 2)))
	assert.Equal(t, ValidityExpiring, p.Validity(m, day(2025, 6, 24)))
	assert.Equal(t, ValidityExpiring, p.Validity(m, day(2025, 7, 1)))
	assert.Equal(t, ValidityExpired, p.Validity(m, day(2025, 7, 2)))
	assert.Equal(t, ValidityNone, p.Validity(nil, day(2025, 7, 2)))

	assert.Equal(t, PaymentPending, Payment(m))
	m.Pay()
	assert.Equal(t, PaymentPaid, Payment(m))
	assert.Equal(t, PaymentNone, Payment(nil))
}

func TestRenew_NoOpWhileDaysRemain(t *testing.T) {
	p := DefaultPolicy()
	rapid.Check(t, func(t *rapid.T) {
		start := day(2025, 1, 1).AddDate(0, 0, rapid.IntRange(0, 365).Draw(t, "offset"))
		paid := rapid.Bool().Draw(t, "paid")
		m, _ := p.New(start, &start, nil, paid)
		before := *m

		today := start.AddDate(0, 0, rapid.IntRange(-60, p.Days-1).Draw(t, "elapsed"))
		ok, adj := p.Renew(m, today, nil, nil)

		assert.False(t, ok)
		assert.Nil(t, adj)
		assert.Equal(t, before, *m)
	})
}
