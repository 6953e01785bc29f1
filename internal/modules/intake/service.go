package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealcurator/dealcurator-backend/internal/config"
	"github.com/dealcurator/dealcurator-backend/internal/modules/catalog"
	"github.com/dealcurator/dealcurator-backend/internal/modules/eligibility"
	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
	"github.com/dealcurator/dealcurator-backend/internal/modules/pricing"
	"github.com/dealcurator/dealcurator-backend/internal/telemetry"
)

// priceEpsilon bounds float comparison when deciding whether a price moved.
const priceEpsilon = 1e-6

// Options tunes one intake service instance.
type Options struct {
	MinDiscountPct    float64
	RequireTagMatch   bool // empty tag catalog policy: true denies all
	StorePolicy       string
	AutoTag           bool
	Workers           int
	AffiliateTemplate string // %s is replaced by the source URL
}

// Service converts raw feed candidates into product, price observation and
// offer writes, with per (product, store) deduplication.
type Service struct {
	feed     FeedSource
	products catalog.ProductRepository
	stores   catalog.StoreRepository
	tags     catalog.TagRepository
	ledger   *pricing.Ledger
	offers   offer.Repository
	recorder Recorder
	opts     Options

	locks keyedMutex

	mu     sync.Mutex
	filter *eligibility.Filter
}

// NewService creates the intake engine.
func NewService(feed FeedSource, products catalog.ProductRepository, stores catalog.StoreRepository,
	tags catalog.TagRepository, ledger *pricing.Ledger, offers offer.Repository,
	recorder Recorder, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.StorePolicy == "" {
		opts.StorePolicy = config.StorePolicyReject
	}
	return &Service{
		feed:     feed,
		products: products,
		stores:   stores,
		tags:     tags,
		ledger:   ledger,
		offers:   offers,
		recorder: recorder,
		opts:     opts,
	}
}

// Name identifies the stage in pipeline logs and metrics.
func (s *Service) Name() string { return "intake" }

// Run fetches one batch and processes every candidate. A feed failure aborts
// the stage; per-candidate failures are logged and skipped.
func (s *Service) Run(ctx context.Context) error {
	candidates, err := s.feed.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("intake: %w", err)
	}

	if err := s.rebuildFilter(ctx); err != nil {
		return fmt.Errorf("intake: rebuild tag filter: %w", err)
	}

	summary := s.processBatch(ctx, candidates)
	for result, count := range summary.ByResult {
		telemetry.RecordItems("intake", string(result), count)
	}
	telemetry.RecordItems("intake", "failure", summary.Failures)
	log.Printf("[intake] processed=%d created=%d failures=%d results=%v",
		summary.Processed, summary.Created, summary.Failures, summary.ByResult)
	return nil
}

// rebuildFilter recompiles the tag matcher from the current tag catalog, so
// staleness is bounded by one pipeline run.
func (s *Service) rebuildFilter(ctx context.Context) error {
	tags, err := s.tags.ListAll(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	f := eligibility.New(names, !s.opts.RequireTagMatch)

	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	return nil
}

func (s *Service) currentFilter() *eligibility.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// processBatch runs candidates on a bounded worker pool. One candidate's
// fault never aborts its siblings.
func (s *Service) processBatch(ctx context.Context, candidates []Candidate) Summary {
	summary := Summary{ByResult: make(map[Result]int)}
	var sumMu sync.Mutex

	jobs := make(chan Candidate)
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				result, err := s.Process(ctx, c)
				sumMu.Lock()
				summary.Processed++
				if err != nil {
					summary.Failures++
					log.Printf("[intake] candidate %s (%s): %v", c.StoreItemID, c.Name, err)
				} else {
					summary.ByResult[result]++
					if result == ResultCreated {
						summary.Created++
					}
				}
				sumMu.Unlock()
			}
		}()
	}

	for _, c := range candidates {
		jobs <- c
	}
	close(jobs)
	wg.Wait()
	return summary
}

// Process runs one candidate through upsert, filtering and deduplication.
// The whole candidate runs under a mutex keyed on its (product, store)
// identity, so concurrent candidates cannot race the open-offer
// check-then-act or the product upsert.
func (s *Service) Process(ctx context.Context, c Candidate) (Result, error) {
	if c.StoreItemID == "" || c.Name == "" {
		return "", fmt.Errorf("candidate missing identity or name")
	}

	unlock := s.locks.lock(c.StoreItemID + "|" + c.StoreCode)
	defer unlock()

	product, err := s.upsertProduct(ctx, c)
	if err != nil {
		return "", fmt.Errorf("upsert product: %w", err)
	}

	// Marketplace-advertised discount gate.
	if c.DiscountPct != nil && *c.DiscountPct < s.opts.MinDiscountPct {
		return ResultRejectedDiscount, nil
	}

	eligible, matched := s.currentFilter().Eligible(c.Name)
	if !eligible {
		return ResultRejectedIneligible, nil
	}
	if s.opts.AutoTag {
		if err := s.attachTags(ctx, product.ID, matched); err != nil {
			return "", fmt.Errorf("auto-tag: %w", err)
		}
	}

	store, err := s.resolveStore(ctx, c)
	if err != nil {
		return "", err
	}
	if store == nil || !store.Active {
		return ResultRejectedStore, nil
	}

	return s.dedupAndCreate(ctx, c, product, store)
}

// dedupAndCreate applies the price-history comparison and open-offer rules.
// The caller already holds the (product, store) mutex. All writes go through
// the recorder, so the observation and the offer commit together.
func (s *Service) dedupAndCreate(ctx context.Context, c Candidate, product *catalog.Product, store *catalog.Store) (Result, error) {
	now := time.Now()
	lastPrice, hasLast, err := s.ledger.LastPrice(ctx, product.ID, store.ID)
	if err != nil {
		return "", fmt.Errorf("last price: %w", err)
	}
	samePrice := hasLast && abs(c.CurrentPrice-lastPrice) < priceEpsilon

	open, err := s.offers.HasOpen(ctx, product.ID, store.ID)
	if err != nil {
		return "", fmt.Errorf("open offer check: %w", err)
	}

	obs := &pricing.PriceObservation{
		ID:         uuid.New(),
		ProductID:  product.ID,
		StoreID:    store.ID,
		Price:      c.CurrentPrice,
		ObservedAt: now,
	}

	if open {
		if !samePrice {
			if err := s.recorder.Record(ctx, obs, nil); err != nil {
				return "", fmt.Errorf("record price observation: %w", err)
			}
			return ResultPriceRecorded, nil
		}
		return ResultDuplicateSuppressed, nil
	}

	if samePrice {
		return ResultDuplicateSuppressed, nil
	}

	o := &offer.Offer{
		ID:            uuid.New(),
		ProductID:     product.ID,
		StoreID:       store.ID,
		OriginalPrice: c.OriginalPrice,
		OfferPrice:    c.CurrentPrice,
		LongURL:       s.affiliateURL(c.SourceURL),
		Status:        offer.StatusPending,
		FoundAt:       now,
	}
	if err := s.recorder.Record(ctx, obs, o); err != nil {
		return "", fmt.Errorf("record candidate: %w", err)
	}
	return ResultCreated, nil
}

// upsertProduct finds or creates the product by its store-scoped code and
// refreshes mutable display fields. The canonical code is never rewritten.
func (s *Service) upsertProduct(ctx context.Context, c Candidate) (*catalog.Product, error) {
	product, err := s.products.FindByCode(ctx, c.StoreItemID)
	if errors.Is(err, catalog.ErrNotFound) {
		product = &catalog.Product{
			ID:       uuid.New(),
			Code:     c.StoreItemID,
			Name:     c.Name,
			BaseURL:  c.SourceURL,
			ImageURL: c.ImageURL,
		}
		if err := s.products.Create(ctx, product); err != nil {
			return nil, err
		}
		return product, nil
	}
	if err != nil {
		return nil, err
	}

	product.Name = c.Name
	if c.ImageURL != "" {
		product.ImageURL = c.ImageURL
	}
	if err := s.products.UpdateDisplay(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// resolveStore applies the deployment's unknown-store policy: reject the
// candidate, or auto-register a disabled stub awaiting manual activation.
func (s *Service) resolveStore(ctx context.Context, c Candidate) (*catalog.Store, error) {
	store, err := s.stores.FindByCode(ctx, c.StoreCode)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("resolve store: %w", err)
	}

	if s.opts.StorePolicy != config.StorePolicyStub || c.StoreCode == "" {
		return nil, nil
	}

	name := c.StoreName
	if name == "" {
		name = "Store " + c.StoreCode
	}
	stub := &catalog.Store{
		ID:         uuid.New(),
		Name:       name,
		Platform:   c.Platform,
		APICode:    c.StoreCode,
		TrustScore: 3,
		Active:     false,
	}
	if err := s.stores.CreateStub(ctx, stub); err != nil {
		// Concurrent intake may have registered it first.
		if existing, ferr := s.stores.FindByCode(ctx, c.StoreCode); ferr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create stub store: %w", err)
	}
	return stub, nil
}

func (s *Service) attachTags(ctx context.Context, productID uuid.UUID, names []string) error {
	for _, name := range names {
		tag, err := s.tags.GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := s.tags.AttachToProduct(ctx, productID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) affiliateURL(raw string) string {
	if s.opts.AffiliateTemplate == "" || !strings.Contains(s.opts.AffiliateTemplate, "%s") {
		return raw
	}
	return fmt.Sprintf(s.opts.AffiliateTemplate, raw)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// keyedMutex provides one mutex per string key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
