package intake

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
	"github.com/dealcurator/dealcurator-backend/internal/modules/pricing"
)

// Recorder commits one candidate's writes as a unit: the price observation,
// plus the new offer when the candidate opens one. Either both land or
// neither does, so a failed pass never leaves an orphaned observation that
// would make the next pass suppress the same candidate as a duplicate.
type Recorder interface {
	Record(ctx context.Context, obs *pricing.PriceObservation, o *offer.Offer) error
}

type postgresRecorder struct{ db *sql.DB }

func NewPostgresRecorder(db *sql.DB) Recorder { return &postgresRecorder{db: db} }

func (r *postgresRecorder) Record(ctx context.Context, obs *pricing.PriceObservation, o *offer.Offer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO price_observations (id,product_id,store_id,price,observed_at)
		VALUES ($1,$2,$3,$4,$5)`,
		obs.ID, obs.ProductID, obs.StoreID, obs.Price, obs.ObservedAt)
	if err != nil {
		return fmt.Errorf("insert price observation: %w", err)
	}

	if o != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO offers (id,product_id,store_id,original_price,offer_price,long_url,status,found_at,valid_until)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			o.ID, o.ProductID, o.StoreID, o.OriginalPrice, o.OfferPrice,
			o.LongURL, o.Status, o.FoundAt, o.ValidUntil)
		if err != nil {
			return fmt.Errorf("insert offer: %w", err)
		}
	}

	return tx.Commit()
}
