package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("catalog: not found")

// StoreRepository reads sellers and, in stub mode, registers disabled ones.
type StoreRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Store, error)

	// FindByCode matches a seller by primary or alternate marketplace code.
	FindByCode(ctx context.Context, code string) (*Store, error)

	// CreateStub inserts a disabled store discovered at intake. It stays
	// inactive until an operator activates it.
	CreateStub(ctx context.Context, s *Store) error
}

// TagRepository manages the keyword catalog and product associations.
type TagRepository interface {
	ListAll(ctx context.Context) ([]*Tag, error)
	GetOrCreate(ctx context.Context, name string) (*Tag, error)
	AttachToProduct(ctx context.Context, productID, tagID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*Tag, error)
}

// ChannelRepository reads delivery channels for fan-out targeting.
type ChannelRepository interface {
	// ListActiveByTagNames returns active channels whose tag set intersects
	// the given tag names.
	ListActiveByTagNames(ctx context.Context, names []string) ([]*Channel, error)
}

// ProductRepository manages canonical products.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByCode matches a product by primary or alternate listing code.
	FindByCode(ctx context.Context, code string) (*Product, error)

	Create(ctx context.Context, p *Product) error

	// UpdateDisplay refreshes mutable display fields (name, image, alt code).
	// The canonical listing code is never rewritten.
	UpdateDisplay(ctx context.Context, p *Product) error
}
