package publication

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO publication_records (id,offer_id,channel_id,message_id,delivered_at)
		VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, rec.OfferID, rec.ChannelID, rec.MessageID, rec.DeliveredAt)
	return err
}

func (r *postgresRepo) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,offer_id,channel_id,message_id,delivered_at
		FROM publication_records WHERE offer_id=$1
		ORDER BY delivered_at`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.OfferID, &rec.ChannelID, &rec.MessageID, &rec.DeliveredAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
