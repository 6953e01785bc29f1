package tracking

import (
	"time"

	"github.com/google/uuid"
)

// OfferMetric holds the engagement counters collected for a published offer.
// One row per offer, updated in place on every collection run.
type OfferMetric struct {
	ID        uuid.UUID `json:"id"`
	OfferID   uuid.UUID `json:"offer_id"`
	Clicks    int64     `json:"clicks"`
	Sales     int64     `json:"sales"`
	Source    string    `json:"source"` // which backend produced the numbers
	UpdatedAt time.Time `json:"updated_at"`
}
