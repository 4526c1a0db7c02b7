// internal/pricing/domain.go
package pricing

import (
	"fmt"
	"time"

	"gymnexus/internal/gymerr"
)

// Item is something the gym charges for.
type Item string

const (
	ItemMembership     Item = "membership"
	ItemSingleEntry    Item = "single_entry"
	ItemSpecialSession Item = "special_session"
)

// Prices lists the current charge for every item, in whole pesos.
type Prices struct {
	Membership     int64 `json:"membership" yaml:"membership"`
	SingleEntry    int64 `json:"single_entry" yaml:"single_entry"`
	SpecialSession int64 `json:"special_session" yaml:"special_session"`
}

func (p Prices) Of(item Item) (int64, error) {
	switch item {
	case ItemMembership:
		return p.Membership, nil
	case ItemSingleEntry:
		return p.SingleEntry, nil
	case ItemSpecialSession:
		return p.SpecialSession, nil
	}
	return 0, fmt.Errorf("%w: unknown price item %q", gymerr.ErrInvalidFormat, item)
}

func (p *Prices) set(item Item, amount int64) {
	switch item {
	case ItemMembership:
		p.Membership = amount
	case ItemSingleEntry:
		p.SingleEntry = amount
	case ItemSpecialSession:
		p.SpecialSession = amount
	}
}

// Change is published whenever a price is updated.
type Change struct {
	Item     Item      `json:"item"`
	Previous int64     `json:"previous"`
	Current  int64     `json:"current"`
	At       time.Time `json:"at"`
}
