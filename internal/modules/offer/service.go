package offer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dealcurator/dealcurator-backend/internal/modules/catalog"
)

// Service defines the approval commands and read queries over offers.
// The commands here plus the validator annotation and the fan-out outcome are
// the only status drivers in the system.
type Service interface {
	// Approve moves a PENDING offer to APPROVED and attaches the given tags
	// to its product, so they participate in fan-out targeting.
	Approve(ctx context.Context, id string, req ApproveRequest) (*Offer, error)

	// Reject closes a PENDING offer.
	Reject(ctx context.Context, id string) (*Offer, error)

	// Schedule moves an APPROVED offer to SCHEDULED at the given time.
	Schedule(ctx context.Context, id string, req ScheduleRequest) (*Offer, error)

	// Get returns a display projection of one offer.
	Get(ctx context.Context, id string) (*View, error)

	// List returns projections filtered by exact status or by status group
	// ("open"/"closed"). An empty filter returns the open group.
	List(ctx context.Context, status, group string) ([]*View, error)
}

type service struct {
	repo     Repository
	products catalog.ProductRepository
	stores   catalog.StoreRepository
	tags     catalog.TagRepository
}

// NewService creates the offer command/query service.
func NewService(repo Repository, products catalog.ProductRepository, stores catalog.StoreRepository, tags catalog.TagRepository) Service {
	return &service{repo: repo, products: products, stores: stores, tags: tags}
}

func (s *service) Approve(ctx context.Context, id string, req ApproveRequest) (*Offer, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid offer id: %w", err)
	}
	o, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	for _, name := range req.Tags {
		tag, err := s.tags.GetOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		if err := s.tags.AttachToProduct(ctx, o.ProductID, tag.ID); err != nil {
			return nil, fmt.Errorf("attach tag %q: %w", name, err)
		}
	}

	if err := s.transition(ctx, o, StatusApproved); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, oid)
}

func (s *service) Reject(ctx context.Context, id string) (*Offer, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid offer id: %w", err)
	}
	o, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, o, StatusRejected); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, oid)
}

func (s *service) Schedule(ctx context.Context, id string, req ScheduleRequest) (*Offer, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid offer id: %w", err)
	}
	if req.At.IsZero() {
		return nil, fmt.Errorf("schedule time is required")
	}
	o, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusScheduled) {
		return nil, fmt.Errorf("cannot transition offer from %s to %s", o.Status, StatusScheduled)
	}
	if err := s.repo.SetSchedule(ctx, oid, req.At); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("cannot transition offer from %s to %s: %w", o.Status, StatusScheduled, err)
		}
		return nil, err
	}
	return s.repo.GetByID(ctx, oid)
}

func (s *service) transition(ctx context.Context, o *Offer, to Status) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("cannot transition offer from %s to %s", o.Status, to)
	}
	if err := s.repo.Transition(ctx, o.ID, o.Status, to); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return fmt.Errorf("cannot transition offer from %s to %s: %w", o.Status, to, err)
		}
		return err
	}
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*View, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid offer id: %w", err)
	}
	o, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, o), nil
}

func (s *service) List(ctx context.Context, status, group string) ([]*View, error) {
	var offers []*Offer
	var err error
	switch {
	case status != "":
		offers, err = s.repo.ListByStatus(ctx, Status(status))
	case group == "closed":
		offers, err = s.repo.ListGroup(ctx, false)
	default:
		offers, err = s.repo.ListGroup(ctx, true)
	}
	if err != nil {
		return nil, err
	}
	views := make([]*View, 0, len(offers))
	for _, o := range offers {
		views = append(views, s.project(ctx, o))
	}
	return views, nil
}

// project joins display fields onto the offer. Lookup failures leave the
// corresponding field empty rather than failing the listing.
func (s *service) project(ctx context.Context, o *Offer) *View {
	v := &View{Offer: *o}
	if p, err := s.products.GetByID(ctx, o.ProductID); err == nil {
		v.ProductName = p.Name
	}
	if st, err := s.stores.GetByID(ctx, o.StoreID); err == nil {
		v.StoreName = st.Name
	}
	if tags, err := s.tags.ListByProduct(ctx, o.ProductID); err == nil {
		for _, t := range tags {
			v.ProductTags = append(v.ProductTags, t.Name)
		}
	}
	return v
}
