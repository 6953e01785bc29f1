package pricing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) LastPrice(ctx context.Context, productID, storeID uuid.UUID) (float64, error) {
	var price float64
	err := r.db.QueryRowContext(ctx, `
		SELECT price FROM price_observations
		WHERE product_id=$1 AND store_id=$2
		ORDER BY observed_at DESC LIMIT 1`, productID, storeID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoHistory
	}
	if err != nil {
		return 0, err
	}
	return price, nil
}

func (r *postgresRepo) TrailingAverage(ctx context.Context, productID uuid.UUID, since time.Time) (float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(price) FROM price_observations
		WHERE product_id=$1 AND observed_at >= $2`, productID, since).Scan(&avg)
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, ErrNoHistory
	}
	return avg.Float64, nil
}
