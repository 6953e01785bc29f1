package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ledger wraps the repository with the price-history contract used by intake
// and validation.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger { return &Ledger{repo: repo} }

// LastPrice returns the most recent price for (product, store). The boolean is
// false when no observation exists.
func (l *Ledger) LastPrice(ctx context.Context, productID, storeID uuid.UUID) (float64, bool, error) {
	price, err := l.repo.LastPrice(ctx, productID, storeID)
	if errors.Is(err, ErrNoHistory) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// TrailingAverage returns the mean price over the trailing window, or
// ErrNoHistory when the window holds no observations.
func (l *Ledger) TrailingAverage(ctx context.Context, productID uuid.UUID, window time.Duration) (float64, error) {
	return l.repo.TrailingAverage(ctx, productID, time.Now().Add(-window))
}
