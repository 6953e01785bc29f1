package validation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dealcurator/dealcurator-backend/internal/modules/catalog"
	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
	"github.com/dealcurator/dealcurator-backend/internal/modules/pricing"
)

// Options tunes the validator.
type Options struct {
	Window time.Duration // trailing window for the average, default 90 days

	// AutoGate switches the validator from annotate-only to auto-gating:
	// offers at or above Threshold are approved, below it rejected, and
	// concurrent open candidates for one product collapse to the cheapest.
	// Annotate-only with human approval is the default.
	AutoGate  bool
	Threshold float64
}

// Service annotates PENDING offers with a computed discount rationale.
// In its default mode it never transitions status: approval and rejection stay
// with the human operator.
type Service struct {
	offers   offer.Repository
	products catalog.ProductRepository
	ledger   *pricing.Ledger
	opts     Options
}

func NewService(offers offer.Repository, products catalog.ProductRepository, ledger *pricing.Ledger, opts Options) *Service {
	if opts.Window <= 0 {
		opts.Window = 90 * 24 * time.Hour
	}
	return &Service{offers: offers, products: products, ledger: ledger, opts: opts}
}

// Name identifies the stage in pipeline logs and metrics.
func (s *Service) Name() string { return "validation" }

// Run annotates every pending offer. Per-offer failures are logged and
// skipped.
func (s *Service) Run(ctx context.Context) error {
	pending, err := s.offers.ListByStatus(ctx, offer.StatusPending)
	if err != nil {
		return fmt.Errorf("validation: list pending: %w", err)
	}

	for _, o := range pending {
		if err := s.validate(ctx, o); err != nil {
			log.Printf("[validation] offer %s: %v", o.ID, err)
		}
	}
	return nil
}

func (s *Service) validate(ctx context.Context, o *offer.Offer) error {
	if _, err := s.products.GetByID(ctx, o.ProductID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			// Offer points at a product that no longer exists.
			return s.offers.Transition(ctx, o.ID, offer.StatusPending, offer.StatusRejectedDataError)
		}
		return err
	}

	discount, note := s.annotate(ctx, o)
	if err := s.offers.Annotate(ctx, o.ID, discount, note); err != nil {
		return fmt.Errorf("annotate: %w", err)
	}

	if !s.opts.AutoGate || discount == nil {
		return nil
	}
	return s.autoGate(ctx, o, *discount)
}

// annotate computes discount_real and its rationale. It prefers the trailing
// average; falls back to the listed original price; otherwise flags the offer
// for manual review.
func (s *Service) annotate(ctx context.Context, o *offer.Offer) (*float64, string) {
	avg, err := s.ledger.TrailingAverage(ctx, o.ProductID, s.opts.Window)
	if err == nil && avg > 0 {
		d := (avg - o.OfferPrice) / avg * 100
		note := fmt.Sprintf("trailing average %.2f vs offer price %.2f: real discount %.1f%%",
			avg, o.OfferPrice, d)
		return &d, note
	}
	if err != nil && !errors.Is(err, pricing.ErrNoHistory) {
		log.Printf("[validation] offer %s: trailing average: %v", o.ID, err)
	}

	if o.OriginalPrice != nil && *o.OriginalPrice > 0 {
		d := (*o.OriginalPrice - o.OfferPrice) / *o.OriginalPrice * 100
		note := fmt.Sprintf("no price history; listed original price %.2f vs offer price %.2f: discount %.1f%%",
			*o.OriginalPrice, o.OfferPrice, d)
		return &d, note
	}

	return nil, "no price history and no original price; manual review required"
}

// autoGate approves or rejects based on the threshold, then collapses any
// other open offers for the same product to the cheapest one.
func (s *Service) autoGate(ctx context.Context, o *offer.Offer, discount float64) error {
	if discount < s.opts.Threshold {
		return s.offers.Transition(ctx, o.ID, offer.StatusPending, offer.StatusRejected)
	}

	siblings, err := s.offers.ListOpenByProduct(ctx, o.ProductID)
	if err != nil {
		return fmt.Errorf("list open by product: %w", err)
	}

	cheapest := o.OfferPrice
	cheapestID := o.ID
	for _, sib := range siblings {
		if sib.OfferPrice < cheapest {
			cheapest = sib.OfferPrice
			cheapestID = sib.ID
		}
	}
	if cheapestID != o.ID {
		return s.offers.Transition(ctx, o.ID, offer.StatusPending, offer.StatusRejectedDuplicate)
	}

	if err := s.offers.Transition(ctx, o.ID, offer.StatusPending, offer.StatusApproved); err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.ID == o.ID || sib.Status != offer.StatusPending {
			continue
		}
		if err := s.offers.Transition(ctx, sib.ID, offer.StatusPending, offer.StatusRejectedDuplicate); err != nil &&
			!errors.Is(err, offer.ErrStatusConflict) {
			log.Printf("[validation] collapse duplicate %s: %v", sib.ID, err)
		}
	}
	return nil
}
