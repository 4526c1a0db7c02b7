// internal/membership/lifecycle.go
package membership

import (
	"time"

	"gymnexus/internal/timezone"
)

// Window resolves a membership period. A missing start defaults to today,
// a missing end to start+Days. A supplied end that is not exactly Days
// after start is replaced and reported through the returned Adjustment.
func (p Policy) Window(today time.Time, start, end *time.Time) (time.Time, time.Time, *Adjustment) {
	s := timezone.Date(today)
	if start != nil {
		s = timezone.Date(*start)
	}
	e := timezone.AddDays(s, p.Days)
	if end == nil {
		return s, e, nil
	}

	supplied := timezone.Date(*end)
	days := timezone.DaysBetween(s, supplied)
	if days == p.Days {
		return s, supplied, nil
	}
	return s, e, &Adjustment{
		Start:        s,
		SuppliedEnd:  supplied,
		SuppliedDays: days,
		End:          e,
	}
}

// New builds a membership for the resolved window.
func (p Policy) New(today time.Time, start, end *time.Time, paid bool) (*Membership, *Adjustment) {
	s, e, adj := p.Window(today, start, end)
	return &Membership{Paid: paid, Start: s, End: e}, adj
}

// DaysRemaining is end minus today. Zero means the membership expires
// today, negative means it has expired.
func (m *Membership) DaysRemaining(today time.Time) int {
	return timezone.DaysBetween(today, m.End)
}

// DueForRenewal reports whether a paid membership has run out. Unpaid
// memberships are never due.
func (m *Membership) DueForRenewal(today time.Time) bool {
	return m.Paid && m.DaysRemaining(today) <= 0
}

// Pay flips the payment flag. It returns false when the membership was
// already paid.
func (m *Membership) Pay() bool {
	if m.Paid {
		return false
	}
	m.Paid = true
	return true
}

// Renew opens a fresh window on an expired, paid membership. It is a
// no-op returning false when the membership is unpaid or still has days
// remaining.
func (p Policy) Renew(m *Membership, today time.Time, start, end *time.Time) (bool, *Adjustment) {
	if !m.Paid {
		return false, nil
	}
	if m.DaysRemaining(today) > 0 {
		return false, nil
	}

	s, e, adj := p.Window(today, start, end)
	m.Start = s
	m.End = e
	return true, adj
}

// Validity classifies m against today. A nil membership has no validity.
func (p Policy) Validity(m *Membership, today time.Time) Validity {
	if m == nil {
		return ValidityNone
	}
	days := m.DaysRemaining(today)
	switch {
	case days < 0:
		return ValidityExpired
	case days <= p.ExpiringWithin:
		return ValidityExpiring
	default:
		return ValidityActive
	}
}

func Payment(m *Membership) PaymentState {
	switch {
	case m == nil:
		return PaymentNone
	case m.Paid:
		return PaymentPaid
	default:
		return PaymentPending
	}
}
