package tracking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no metric row exists for the offer.
var ErrNotFound = errors.New("tracking: not found")

// Repository stores per-offer engagement counters.
type Repository interface {
	// Upsert inserts or replaces the metric row for m.OfferID.
	Upsert(ctx context.Context, m *OfferMetric) error

	GetByOffer(ctx context.Context, offerID uuid.UUID) (*OfferMetric, error)
}
