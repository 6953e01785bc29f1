package validation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dealcurator/dealcurator-backend/internal/modules/catalog"
	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
	"github.com/dealcurator/dealcurator-backend/internal/modules/pricing"
)

// ── In-memory fakes ───────────────────────────────────────────────────────────

type fakeOffers struct {
	offers map[uuid.UUID]*offer.Offer
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{offers: make(map[uuid.UUID]*offer.Offer)}
}

func (f *fakeOffers) add(o *offer.Offer) *offer.Offer {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = offer.StatusPending
	}
	f.offers[o.ID] = o
	return o
}

func (f *fakeOffers) GetByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	o, ok := f.offers[id]
	if !ok {
		return nil, offer.ErrNotFound
	}
	return o, nil
}

func (f *fakeOffers) HasOpen(ctx context.Context, productID, storeID uuid.UUID) (bool, error) {
	for _, o := range f.offers {
		if o.ProductID == productID && o.StoreID == storeID && o.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOffers) ListByStatus(ctx context.Context, status offer.Status) ([]*offer.Offer, error) {
	var out []*offer.Offer
	for _, o := range f.offers {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) ListGroup(ctx context.Context, open bool) ([]*offer.Offer, error) {
	var out []*offer.Offer
	for _, o := range f.offers {
		if o.Status.IsOpen() == open {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) ListOpenByProduct(ctx context.Context, productID uuid.UUID) ([]*offer.Offer, error) {
	var out []*offer.Offer
	for _, o := range f.offers {
		if o.ProductID == productID && o.Status.IsOpen() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) ListDue(ctx context.Context, now time.Time) ([]*offer.Offer, error) {
	var out []*offer.Offer
	for _, o := range f.offers {
		if o.Status == offer.StatusApproved ||
			(o.Status == offer.StatusScheduled && o.ScheduledAt != nil && !o.ScheduledAt.After(now)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) Transition(ctx context.Context, id uuid.UUID, from, to offer.Status) error {
	o, ok := f.offers[id]
	if !ok {
		return offer.ErrNotFound
	}
	if o.Status != from {
		return offer.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (f *fakeOffers) SetSchedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := f.Transition(ctx, id, offer.StatusApproved, offer.StatusScheduled); err != nil {
		return err
	}
	f.offers[id].ScheduledAt = &at
	return nil
}

func (f *fakeOffers) Annotate(ctx context.Context, id uuid.UUID, discountReal *float64, note string) error {
	o, ok := f.offers[id]
	if !ok {
		return offer.ErrNotFound
	}
	o.DiscountReal = discountReal
	o.Note = note
	return nil
}

func (f *fakeOffers) Finalize(ctx context.Context, id uuid.UUID, to offer.Status) error {
	o, ok := f.offers[id]
	if !ok {
		return offer.ErrNotFound
	}
	if o.Status != offer.StatusApproved && o.Status != offer.StatusScheduled {
		return offer.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (f *fakeOffers) MarkPublished(ctx context.Context, id uuid.UUID, shortURL, messageID string, at time.Time) error {
	if err := f.Finalize(ctx, id, offer.StatusPublished); err != nil {
		return err
	}
	o := f.offers[id]
	o.ShortURL = &shortURL
	o.MessageID = &messageID
	o.PublishedAt = &at
	return nil
}

type fakeProducts struct {
	products map[uuid.UUID]*catalog.Product
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{products: make(map[uuid.UUID]*catalog.Product)}
}

func (f *fakeProducts) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	for _, p := range f.products {
		if p.Code == code || p.AltCode == code {
			return p, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeProducts) Create(ctx context.Context, p *catalog.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeProducts) UpdateDisplay(ctx context.Context, p *catalog.Product) error {
	f.products[p.ID] = p
	return nil
}

type fakePrices struct {
	observations []*pricing.PriceObservation
}

func (f *fakePrices) LastPrice(ctx context.Context, productID, storeID uuid.UUID) (float64, error) {
	for i := len(f.observations) - 1; i >= 0; i-- {
		obs := f.observations[i]
		if obs.ProductID == productID && obs.StoreID == storeID {
			return obs.Price, nil
		}
	}
	return 0, pricing.ErrNoHistory
}

func (f *fakePrices) TrailingAverage(ctx context.Context, productID uuid.UUID, since time.Time) (float64, error) {
	var sum float64
	var n int
	for _, obs := range f.observations {
		if obs.ProductID == productID && obs.ObservedAt.After(since) {
			sum += obs.Price
			n++
		}
	}
	if n == 0 {
		return 0, pricing.ErrNoHistory
	}
	return sum / float64(n), nil
}

// ── Harness ───────────────────────────────────────────────────────────────────

type harness struct {
	svc      *Service
	offers   *fakeOffers
	products *fakeProducts
	prices   *fakePrices
}

func newHarness(opts Options) *harness {
	h := &harness{
		offers:   newFakeOffers(),
		products: newFakeProducts(),
		prices:   &fakePrices{},
	}
	h.svc = NewService(h.offers, h.products, pricing.NewLedger(h.prices), opts)
	return h
}

func (h *harness) product() *catalog.Product {
	p := &catalog.Product{ID: uuid.New(), Code: "X1", Name: "Notebook"}
	h.products.products[p.ID] = p
	return p
}

func (h *harness) observe(productID uuid.UUID, price float64, age time.Duration) {
	h.prices.observations = append(h.prices.observations, &pricing.PriceObservation{
		ID:         uuid.New(),
		ProductID:  productID,
		StoreID:    uuid.New(),
		Price:      price,
		ObservedAt: time.Now().Add(-age),
	})
}

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestRun_AnnotatesFromTrailingAverage(t *testing.T) {
	h := newHarness(Options{})
	p := h.product()
	h.observe(p.ID, 120, 24*time.Hour)
	h.observe(p.ID, 80, 48*time.Hour)

	o := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 80})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.DiscountReal == nil {
		t.Fatal("expected discount annotation")
	}
	// average 100, price 80 -> 20%
	if !closeTo(*o.DiscountReal, 20.0) {
		t.Fatalf("discount = %v, want 20.0", *o.DiscountReal)
	}
	if o.Note == "" {
		t.Fatal("expected annotation note")
	}
	if o.Status != offer.StatusPending {
		t.Fatalf("status = %s, want PENDING in annotate-only mode", o.Status)
	}
}

func TestRun_FallsBackToOriginalPrice(t *testing.T) {
	h := newHarness(Options{})
	p := h.product()

	orig := 50.0
	o := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 45, OriginalPrice: &orig})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.DiscountReal == nil || !closeTo(*o.DiscountReal, 10.0) {
		t.Fatalf("discount = %v, want 10.0", o.DiscountReal)
	}
}

func TestRun_NoHistoryNoOriginal(t *testing.T) {
	h := newHarness(Options{})
	p := h.product()

	o := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 45})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.DiscountReal != nil {
		t.Fatalf("discount = %v, want unset", *o.DiscountReal)
	}
	if o.Note == "" {
		t.Fatal("expected a manual-review note")
	}
	if o.Status != offer.StatusPending {
		t.Fatalf("status = %s, want PENDING", o.Status)
	}
}

func TestRun_MissingProductRejectsDataError(t *testing.T) {
	h := newHarness(Options{})

	o := h.offers.add(&offer.Offer{ProductID: uuid.New(), StoreID: uuid.New(), OfferPrice: 45})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.Status != offer.StatusRejectedDataError {
		t.Fatalf("status = %s, want REJECTED_DATA_ERROR", o.Status)
	}
}

func TestRun_WindowExcludesOldObservations(t *testing.T) {
	h := newHarness(Options{Window: 90 * 24 * time.Hour})
	p := h.product()
	h.observe(p.ID, 100, 24*time.Hour)
	h.observe(p.ID, 10000, 120*24*time.Hour) // outside the window

	o := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 90})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.DiscountReal == nil || !closeTo(*o.DiscountReal, 10.0) {
		t.Fatalf("discount = %v, want 10.0 from in-window average", o.DiscountReal)
	}
}

func TestRun_AutoGateApprovesAboveThreshold(t *testing.T) {
	h := newHarness(Options{AutoGate: true, Threshold: 10})
	p := h.product()
	h.observe(p.ID, 100, 24*time.Hour)

	o := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 80})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.Status != offer.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", o.Status)
	}
}

func TestRun_AutoGateRejectsBelowThreshold(t *testing.T) {
	h := newHarness(Options{AutoGate: true, Threshold: 10})
	p := h.product()
	h.observe(p.ID, 100, 24*time.Hour)

	o := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 95})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.Status != offer.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", o.Status)
	}
}

func TestRun_AutoGateCollapsesToCheapest(t *testing.T) {
	h := newHarness(Options{AutoGate: true, Threshold: 10})
	p := h.product()
	h.observe(p.ID, 100, 24*time.Hour)

	cheap := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 70})
	dear := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 80})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if cheap.Status != offer.StatusApproved {
		t.Fatalf("cheapest status = %s, want APPROVED", cheap.Status)
	}
	if dear.Status != offer.StatusRejectedDuplicate {
		t.Fatalf("dearer status = %s, want REJECTED_DUPLICATE", dear.Status)
	}
}

func TestRun_AnnotateOnlyNeverGates(t *testing.T) {
	h := newHarness(Options{})
	p := h.product()
	h.observe(p.ID, 100, 24*time.Hour)

	a := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 70})
	b := h.offers.add(&offer.Offer{ProductID: p.ID, StoreID: uuid.New(), OfferPrice: 99})

	if err := h.svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if a.Status != offer.StatusPending || b.Status != offer.StatusPending {
		t.Fatalf("statuses = %s, %s; want both PENDING", a.Status, b.Status)
	}
}
