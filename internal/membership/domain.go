// internal/membership/domain.go
package membership

import (
	"fmt"
	"time"

	"gymnexus/internal/timezone"
)

// Membership is the single monthly plan a client may own.
type Membership struct {
	Paid  bool      `json:"paid"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PaymentState is the payment side of a client's membership.
type PaymentState string

const (
	PaymentPaid    PaymentState = "paid"
	PaymentPending PaymentState = "pending"
	PaymentNone    PaymentState = "none"
)

// Validity is the time side of a client's membership. It is derived from
// the end date on every query and never stored.
type Validity string

const (
	ValidityActive   Validity = "active"
	ValidityExpiring Validity = "expiring"
	ValidityExpired  Validity = "expired"
	ValidityNone     Validity = "none"
)

// Adjustment describes an end date that was recomputed because it did not
// sit exactly Policy.Days after the start date.
type Adjustment struct {
	Start        time.Time `json:"start"`
	SuppliedEnd  time.Time `json:"supplied_end"`
	SuppliedDays int       `json:"supplied_days"`
	End          time.Time `json:"end"`
}

func (a *Adjustment) String() string {
	return fmt.Sprintf("end date %s is %d days after start %s; recomputed to %s",
		timezone.FormatDate(a.SuppliedEnd), a.SuppliedDays,
		timezone.FormatDate(a.Start), timezone.FormatDate(a.End))
}

// Policy carries the membership length and the expiring warning window.
type Policy struct {
	Days           int
	ExpiringWithin int
}

func DefaultPolicy() Policy {
	return Policy{Days: 30, ExpiringWithin: 7}
}
