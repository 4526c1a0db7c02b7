// internal/pricing/service.go
package pricing

import "context"

// Service defines the interface for the price catalog.
type Service interface {
	Prices(ctx context.Context) Prices
	Price(ctx context.Context, item Item) (int64, error)
	UpdatePrice(ctx context.Context, pin string, item Item, amount int64) (*Change, error)
	History(ctx context.Context) []Change
}
