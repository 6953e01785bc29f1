package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoHistory is returned when no observation exists for the query. It keeps
// "no data" distinct from a legitimate zero average.
var ErrNoHistory = errors.New("pricing: no price history")

// Repository reads the price ledger. Observations are appended by the intake
// recorder, in the same transaction as the offer they may open.
type Repository interface {
	// LastPrice returns the most recent observed price for (product, store).
	LastPrice(ctx context.Context, productID, storeID uuid.UUID) (float64, error)

	// TrailingAverage returns the mean price for a product across all stores
	// since the given instant, or ErrNoHistory.
	TrailingAverage(ctx context.Context, productID uuid.UUID, since time.Time) (float64, error)
}
