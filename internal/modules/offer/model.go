package offer

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an offer.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusScheduled Status = "SCHEDULED"
	StatusPublished Status = "PUBLISHED"

	StatusRejected          Status = "REJECTED"
	StatusRejectedNoChannel Status = "REJECTED_NO_CHANNEL"
	StatusRejectedDataError Status = "REJECTED_DATA_ERROR"
	StatusRejectedDuplicate Status = "REJECTED_DUPLICATE"
)

// OpenStatuses are the states in which an offer blocks creation of another
// offer for the same (product, store).
var OpenStatuses = []Status{StatusPending, StatusApproved, StatusScheduled, StatusPublished}

// ClosedStatuses are the terminal rejection states.
var ClosedStatuses = []Status{StatusRejected, StatusRejectedNoChannel, StatusRejectedDataError, StatusRejectedDuplicate}

// validTransitions defines the allowed status state machine. There are no
// backward transitions.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusRejectedDuplicate, StatusRejectedDataError},
	StatusApproved:  {StatusScheduled, StatusPublished, StatusRejectedNoChannel, StatusRejectedDataError},
	StatusScheduled: {StatusPublished, StatusRejectedNoChannel, StatusRejectedDataError},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether the status belongs to the open group.
func (s Status) IsOpen() bool {
	for _, open := range OpenStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// Offer is a priced, time-bound candidate deal for a product at a store.
type Offer struct {
	ID            uuid.UUID  `json:"id"`
	ProductID     uuid.UUID  `json:"product_id"`
	StoreID       uuid.UUID  `json:"store_id"`
	OriginalPrice *float64   `json:"original_price,omitempty"` // listed "was" price, if captured
	OfferPrice    float64    `json:"offer_price"`
	LongURL       string     `json:"long_url"`
	ShortURL      *string    `json:"short_url,omitempty"`
	Status        Status     `json:"status"`
	DiscountReal  *float64   `json:"discount_real,omitempty"` // validator annotation, percent
	Note          string     `json:"note,omitempty"`          // validation rationale
	FoundAt       time.Time  `json:"found_at"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	MessageID     *string    `json:"message_id,omitempty"` // external id of the first delivered message
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// View is a read-only projection of an offer joined with display fields.
// It exists for rendering and admin listings; it is never persisted.
type View struct {
	Offer
	ProductName string   `json:"product_name"`
	StoreName   string   `json:"store_name"`
	ProductTags []string `json:"product_tags,omitempty"`
}

// ApproveRequest is the payload for approving an offer. Tags are attached to
// the product and drive fan-out targeting at publish time.
type ApproveRequest struct {
	Tags []string `json:"tags"`
}

// ScheduleRequest is the payload for scheduling an approved offer.
type ScheduleRequest struct {
	At time.Time `json:"at"`
}
