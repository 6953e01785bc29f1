package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// nullable maps an optional text field to its column value: empty means NULL,
// mirroring the sql.NullString reads on the scan side.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ── Stores ────────────────────────────────────────────────────────────────────

type storePostgresRepo struct{ db *sql.DB }

func NewStorePostgresRepository(db *sql.DB) StoreRepository { return &storePostgresRepo{db: db} }

func scanStore(scan func(...interface{}) error) (*Store, error) {
	s := &Store{}
	var alt sql.NullString
	err := scan(&s.ID, &s.Name, &s.Platform, &s.APICode, &alt,
		&s.TrustScore, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.AltAPICode = alt.String
	return s, nil
}

func (r *storePostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Store, error) {
	return scanStore(r.db.QueryRowContext(ctx, `
		SELECT id,name,platform,api_code,alt_api_code,trust_score,active,created_at,updated_at
		FROM stores WHERE id=$1`, id).Scan)
}

func (r *storePostgresRepo) FindByCode(ctx context.Context, code string) (*Store, error) {
	return scanStore(r.db.QueryRowContext(ctx, `
		SELECT id,name,platform,api_code,alt_api_code,trust_score,active,created_at,updated_at
		FROM stores WHERE api_code=$1 OR alt_api_code=$1`, code).Scan)
}

func (r *storePostgresRepo) CreateStub(ctx context.Context, s *Store) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stores (id,name,platform,api_code,alt_api_code,trust_score,active)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE)`,
		s.ID, s.Name, s.Platform, s.APICode, nullable(s.AltAPICode), s.TrustScore)
	return err
}

// ── Tags ──────────────────────────────────────────────────────────────────────

type tagPostgresRepo struct{ db *sql.DB }

func NewTagPostgresRepository(db *sql.DB) TagRepository { return &tagPostgresRepo{db: db} }

func (r *tagPostgresRepo) ListAll(ctx context.Context) ([]*Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []*Tag
	for rows.Next() {
		t := &Tag{}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *tagPostgresRepo) GetOrCreate(ctx context.Context, name string) (*Tag, error) {
	t := &Tag{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tags (id,name) VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
		RETURNING id,name`, uuid.New(), name).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tagPostgresRepo) AttachToProduct(ctx context.Context, productID, tagID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_tags (product_id,tag_id) VALUES ($1,$2)
		ON CONFLICT DO NOTHING`, productID, tagID)
	return err
}

func (r *tagPostgresRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id,t.name FROM tags t
		JOIN product_tags pt ON pt.tag_id=t.id
		WHERE pt.product_id=$1 ORDER BY t.name ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []*Tag
	for rows.Next() {
		t := &Tag{}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ── Channels ──────────────────────────────────────────────────────────────────

type channelPostgresRepo struct{ db *sql.DB }

func NewChannelPostgresRepository(db *sql.DB) ChannelRepository { return &channelPostgresRepo{db: db} }

func (r *channelPostgresRepo) ListActiveByTagNames(ctx context.Context, names []string) ([]*Channel, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT c.id,c.chat_id,c.name,c.active,c.subscribers,c.created_at
		FROM channels c
		JOIN channel_tags ct ON ct.channel_id=c.id
		JOIN tags t ON t.id=ct.tag_id
		WHERE c.active=TRUE AND t.name=ANY($1)`, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var channels []*Channel
	for rows.Next() {
		c := &Channel{}
		if err := rows.Scan(&c.ID, &c.ChatID, &c.Name, &c.Active, &c.Subscribers, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// ── Products ──────────────────────────────────────────────────────────────────

type productPostgresRepo struct{ db *sql.DB }

func NewProductPostgresRepository(db *sql.DB) ProductRepository { return &productPostgresRepo{db: db} }

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	var alt, img sql.NullString
	err := scan(&p.ID, &p.Code, &alt, &p.Name, &p.BaseURL, &img, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.AltCode = alt.String
	p.ImageURL = img.String
	return p, nil
}

func (r *productPostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id,code,alt_code,name,base_url,image_url,created_at,updated_at
		FROM products WHERE id=$1`, id).Scan)
}

func (r *productPostgresRepo) FindByCode(ctx context.Context, code string) (*Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id,code,alt_code,name,base_url,image_url,created_at,updated_at
		FROM products WHERE code=$1 OR alt_code=$1`, code).Scan)
}

func (r *productPostgresRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id,code,alt_code,name,base_url,image_url)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Code, nullable(p.AltCode), p.Name, p.BaseURL, nullable(p.ImageURL))
	return err
}

func (r *productPostgresRepo) UpdateDisplay(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products SET name=$1,image_url=COALESCE($2,image_url),
		alt_code=COALESCE($3,alt_code),updated_at=NOW() WHERE id=$4`,
		p.Name, nullable(p.ImageURL), nullable(p.AltCode), p.ID)
	return err
}
