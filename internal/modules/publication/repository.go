package publication

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores the delivery trail.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*Record, error)
}
