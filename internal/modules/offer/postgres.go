package offer

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const offerColumns = `id,product_id,store_id,original_price,offer_price,long_url,short_url,
status,discount_real,note,found_at,valid_until,scheduled_at,published_at,message_id,created_at,updated_at`

// nullable maps an optional text field to its column value: empty means NULL,
// matching the sql.NullString read in scanOffer.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func statusNames(statuses []Status) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}

func scanOffer(scan func(...interface{}) error) (*Offer, error) {
	o := &Offer{}
	var (
		shortURL, note, messageID      sql.NullString
		originalPrice, discountReal    sql.NullFloat64
		validUntil, scheduledAt, pubAt sql.NullTime
	)
	err := scan(&o.ID, &o.ProductID, &o.StoreID, &originalPrice, &o.OfferPrice,
		&o.LongURL, &shortURL, &o.Status, &discountReal, &note, &o.FoundAt,
		&validUntil, &scheduledAt, &pubAt, &messageID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if originalPrice.Valid {
		o.OriginalPrice = &originalPrice.Float64
	}
	if shortURL.Valid {
		o.ShortURL = &shortURL.String
	}
	if discountReal.Valid {
		o.DiscountReal = &discountReal.Float64
	}
	o.Note = note.String
	if validUntil.Valid {
		o.ValidUntil = &validUntil.Time
	}
	if scheduledAt.Valid {
		o.ScheduledAt = &scheduledAt.Time
	}
	if pubAt.Valid {
		o.PublishedAt = &pubAt.Time
	}
	if messageID.Valid {
		o.MessageID = &messageID.String
	}
	return o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Offer, error) {
	return scanOffer(r.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id=$1`, id).Scan)
}

func (r *postgresRepo) HasOpen(ctx context.Context, productID, storeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM offers
		WHERE product_id=$1 AND store_id=$2 AND status=ANY($3))`,
		productID, storeID, pq.Array(statusNames(OpenStatuses))).Scan(&exists)
	return exists, err
}

func (r *postgresRepo) queryOffers(ctx context.Context, where string, args ...interface{}) ([]*Offer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE `+where+` ORDER BY found_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var offers []*Offer
	for rows.Next() {
		o, err := scanOffer(rows.Scan)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *postgresRepo) ListByStatus(ctx context.Context, status Status) ([]*Offer, error) {
	return r.queryOffers(ctx, `status=$1`, status)
}

func (r *postgresRepo) ListGroup(ctx context.Context, open bool) ([]*Offer, error) {
	group := OpenStatuses
	if !open {
		group = ClosedStatuses
	}
	return r.queryOffers(ctx, `status=ANY($1)`, pq.Array(statusNames(group)))
}

func (r *postgresRepo) ListOpenByProduct(ctx context.Context, productID uuid.UUID) ([]*Offer, error) {
	return r.queryOffers(ctx, `product_id=$1 AND status=ANY($2)`,
		productID, pq.Array(statusNames(OpenStatuses)))
}

func (r *postgresRepo) ListDue(ctx context.Context, now time.Time) ([]*Offer, error) {
	return r.queryOffers(ctx, `status=$1 OR (status=$2 AND scheduled_at <= $3)`,
		StatusApproved, StatusScheduled, now)
}

func (r *postgresRepo) conditionalUpdate(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *postgresRepo) Transition(ctx context.Context, id uuid.UUID, from, to Status) error {
	return r.conditionalUpdate(ctx, `
		UPDATE offers SET status=$1,updated_at=NOW() WHERE id=$2 AND status=$3`,
		to, id, from)
}

func (r *postgresRepo) SetSchedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.conditionalUpdate(ctx, `
		UPDATE offers SET status=$1,scheduled_at=$2,updated_at=NOW()
		WHERE id=$3 AND status=$4`,
		StatusScheduled, at, id, StatusApproved)
}

func (r *postgresRepo) Annotate(ctx context.Context, id uuid.UUID, discountReal *float64, note string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE offers SET discount_real=$1,note=$2,updated_at=NOW() WHERE id=$3`,
		discountReal, note, id)
	return err
}

func (r *postgresRepo) Finalize(ctx context.Context, id uuid.UUID, to Status) error {
	return r.conditionalUpdate(ctx, `
		UPDATE offers SET status=$1,updated_at=NOW()
		WHERE id=$2 AND status=ANY($3)`,
		to, id, pq.Array(statusNames([]Status{StatusApproved, StatusScheduled})))
}

func (r *postgresRepo) MarkPublished(ctx context.Context, id uuid.UUID, shortURL, messageID string, at time.Time) error {
	return r.conditionalUpdate(ctx, `
		UPDATE offers SET status=$1,short_url=$2,message_id=$3,published_at=$4,updated_at=NOW()
		WHERE id=$5 AND status=ANY($6)`,
		StatusPublished, nullable(shortURL), messageID, at, id,
		pq.Array(statusNames([]Status{StatusApproved, StatusScheduled})))
}
