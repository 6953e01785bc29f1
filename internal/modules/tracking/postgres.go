package tracking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Upsert(ctx context.Context, m *OfferMetric) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO offer_metrics (id,offer_id,clicks,sales,source,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (offer_id) DO UPDATE
		SET clicks=EXCLUDED.clicks, sales=EXCLUDED.sales,
		    source=EXCLUDED.source, updated_at=EXCLUDED.updated_at`,
		m.ID, m.OfferID, m.Clicks, m.Sales, m.Source, m.UpdatedAt)
	return err
}

func (r *postgresRepo) GetByOffer(ctx context.Context, offerID uuid.UUID) (*OfferMetric, error) {
	m := &OfferMetric{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id,offer_id,clicks,sales,source,updated_at
		FROM offer_metrics WHERE offer_id=$1`, offerID).
		Scan(&m.ID, &m.OfferID, &m.Clicks, &m.Sales, &m.Source, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
