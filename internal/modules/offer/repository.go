package offer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no offer exists for the id.
	ErrNotFound = errors.New("offer: not found")

	// ErrStatusConflict is returned when a conditional status update matches
	// no row, i.e. the offer already left the expected state.
	ErrStatusConflict = errors.New("offer: status conflict")
)

// Repository defines offer storage after birth. Offers are created by the
// intake recorder, in the same transaction as their first price observation.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Offer, error)

	// HasOpen reports whether an open offer exists for (product, store).
	HasOpen(ctx context.Context, productID, storeID uuid.UUID) (bool, error)

	ListByStatus(ctx context.Context, status Status) ([]*Offer, error)

	// ListGroup returns the open or the closed status group.
	ListGroup(ctx context.Context, open bool) ([]*Offer, error)

	// ListOpenByProduct returns open offers for a product across stores.
	ListOpenByProduct(ctx context.Context, productID uuid.UUID) ([]*Offer, error)

	// ListDue returns offers ready for fan-out: APPROVED, plus SCHEDULED whose
	// scheduled time has passed.
	ListDue(ctx context.Context, now time.Time) ([]*Offer, error)

	// Transition moves an offer from one status to another. It fails with
	// ErrStatusConflict unless the offer is currently in the from status.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) error

	// SetSchedule transitions APPROVED -> SCHEDULED and stamps the time.
	SetSchedule(ctx context.Context, id uuid.UUID, at time.Time) error

	// Annotate stores the validator's discount rationale.
	Annotate(ctx context.Context, id uuid.UUID, discountReal *float64, note string) error

	// Finalize moves an offer out of the publishable states (APPROVED or
	// SCHEDULED) into a terminal rejection. ErrStatusConflict when the offer
	// is no longer publishable, which guarantees at-most-once fan-out.
	Finalize(ctx context.Context, id uuid.UUID, to Status) error

	// MarkPublished finalizes a successful fan-out: status, publish time, the
	// possibly shortened URL and the external message id. Same conditional
	// claim semantics as Finalize.
	MarkPublished(ctx context.Context, id uuid.UUID, shortURL, messageID string, at time.Time) error
}
