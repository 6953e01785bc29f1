package pricing

import (
	"time"

	"github.com/google/uuid"
)

// PriceObservation is one immutable price reading for a product at a store.
// Rows are append-only; the pipeline never mutates or deletes them.
type PriceObservation struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	StoreID    uuid.UUID `json:"store_id"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}
