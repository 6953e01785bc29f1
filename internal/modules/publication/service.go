package publication

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealcurator/dealcurator-backend/internal/modules/catalog"
	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
	"github.com/dealcurator/dealcurator-backend/internal/modules/tracking"
	"github.com/dealcurator/dealcurator-backend/internal/telemetry"
)

// Options tunes one publication service instance.
type Options struct {
	Workers        int           // concurrent offers in flight
	ChannelTimeout time.Duration // per-channel delivery deadline
}

// Service fans approved and due offers out to their matching channels and
// finalizes the offer status from the delivery outcome.
type Service struct {
	offers    offer.Repository
	products  catalog.ProductRepository
	stores    catalog.StoreRepository
	tags      catalog.TagRepository
	channels  catalog.ChannelRepository
	records   Repository
	metrics   tracking.Repository
	transport Transport
	shortener Shortener
	opts      Options
}

// NewService creates the fan-out engine.
func NewService(offers offer.Repository, products catalog.ProductRepository, stores catalog.StoreRepository,
	tags catalog.TagRepository, channels catalog.ChannelRepository, records Repository,
	metrics tracking.Repository, transport Transport, shortener Shortener, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ChannelTimeout <= 0 {
		opts.ChannelTimeout = 10 * time.Second
	}
	if shortener == nil {
		shortener = NoopShortener{}
	}
	return &Service{
		offers:    offers,
		products:  products,
		stores:    stores,
		tags:      tags,
		channels:  channels,
		records:   records,
		metrics:   metrics,
		transport: transport,
		shortener: shortener,
		opts:      opts,
	}
}

// Name identifies the stage in pipeline logs and metrics.
func (s *Service) Name() string { return "publication" }

// Run publishes every due offer: APPROVED ones plus SCHEDULED ones whose time
// has arrived. Per-offer failures are logged and skipped.
func (s *Service) Run(ctx context.Context) error {
	due, err := s.offers.ListDue(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("publication: list due: %w", err)
	}

	sem := make(chan struct{}, s.opts.Workers)
	var wg sync.WaitGroup
	for _, o := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(o *offer.Offer) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.Publish(ctx, o); err != nil {
				log.Printf("[publication] offer %s: %v", o.ID, err)
			}
		}(o)
	}
	wg.Wait()
	return nil
}

// Publish runs the full fan-out for one offer. The final status update is a
// conditional claim, so a concurrent publisher of the same offer loses with
// ErrStatusConflict instead of double-sending a status.
func (s *Service) Publish(ctx context.Context, o *offer.Offer) error {
	product, err := s.products.GetByID(ctx, o.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return s.finalize(ctx, o.ID, offer.StatusRejectedDataError)
		}
		return fmt.Errorf("load product: %w", err)
	}
	store, err := s.stores.GetByID(ctx, o.StoreID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return s.finalize(ctx, o.ID, offer.StatusRejectedDataError)
		}
		return fmt.Errorf("load store: %w", err)
	}

	tagNames, err := s.productTags(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("load product tags: %w", err)
	}

	targets, err := s.targets(ctx, tagNames)
	if err != nil {
		return fmt.Errorf("resolve channels: %w", err)
	}
	if len(targets) == 0 {
		// No active channel wants this offer. Terminal, and no metric row:
		// nothing was ever exposed to measure.
		return s.finalize(ctx, o.ID, offer.StatusRejectedNoChannel)
	}

	// Shortening is best effort: on failure the announcement carries the
	// long URL and the offer records no short URL.
	shortURL := ""
	link := o.LongURL
	if short, err := s.shortener.Shorten(ctx, o.LongURL); err != nil {
		log.Printf("[publication] offer %s: shorten: %v", o.ID, err)
	} else {
		link = short
		if short != o.LongURL {
			shortURL = short
		}
	}

	payload := Payload{
		Title:         product.Name,
		StoreName:     store.Name,
		Price:         o.OfferPrice,
		OriginalPrice: o.OriginalPrice,
		DiscountReal:  o.DiscountReal,
		URL:           link,
		ImageURL:      product.ImageURL,
		Hashtags:      tagNames,
	}

	deliveries := s.fanOut(ctx, targets, payload)
	if len(deliveries) == 0 {
		// Zero successes is terminal, whether no channel matched or every
		// delivery failed.
		return s.finalize(ctx, o.ID, offer.StatusRejectedNoChannel)
	}

	now := time.Now()
	if err := s.offers.MarkPublished(ctx, o.ID, shortURL, deliveries[0].MessageID, now); err != nil {
		if errors.Is(err, offer.ErrStatusConflict) {
			log.Printf("[publication] offer %s: already claimed", o.ID)
			return nil
		}
		return fmt.Errorf("mark published: %w", err)
	}

	for _, d := range deliveries {
		rec := &Record{
			ID:          uuid.New(),
			OfferID:     o.ID,
			ChannelID:   d.channelID,
			MessageID:   d.MessageID,
			DeliveredAt: now,
		}
		if err := s.records.Create(ctx, rec); err != nil {
			log.Printf("[publication] offer %s: record delivery: %v", o.ID, err)
		}
	}

	s.seedMetric(ctx, o.ID, now)
	return nil
}

// finalize moves the offer to a terminal state, tolerating a lost claim.
func (s *Service) finalize(ctx context.Context, id uuid.UUID, to offer.Status) error {
	if err := s.offers.Finalize(ctx, id, to); err != nil && !errors.Is(err, offer.ErrStatusConflict) {
		return fmt.Errorf("finalize %s: %w", to, err)
	}
	return nil
}

func (s *Service) productTags(ctx context.Context, productID uuid.UUID) ([]string, error) {
	tags, err := s.tags.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names, nil
}

// targets resolves active channels for the tag names, deduplicated by chat
// identity so one chat never receives the same offer twice.
func (s *Service) targets(ctx context.Context, tagNames []string) ([]*catalog.Channel, error) {
	if len(tagNames) == 0 {
		return nil, nil
	}
	channels, err := s.channels.ListActiveByTagNames(ctx, tagNames)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(channels))
	out := channels[:0]
	for _, c := range channels {
		if seen[c.ChatID] {
			continue
		}
		seen[c.ChatID] = true
		out = append(out, c)
	}
	return out, nil
}

type delivered struct {
	Delivery
	channelID uuid.UUID
}

// fanOut delivers the payload to every target concurrently, each under its own
// timeout. It returns the successful deliveries; failures are logged only.
func (s *Service) fanOut(ctx context.Context, targets []*catalog.Channel, payload Payload) []delivered {
	text := payload.Text()

	var mu sync.Mutex
	var ok []delivered

	var wg sync.WaitGroup
	for _, ch := range targets {
		wg.Add(1)
		go func(ch *catalog.Channel) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, s.opts.ChannelTimeout)
			defer cancel()

			d, err := s.transport.Deliver(sendCtx, Message{
				ChatID:   ch.ChatID,
				Text:     text,
				ImageURL: payload.ImageURL,
			})
			if err != nil {
				log.Printf("[publication] channel %s (%s): %v", ch.Name, ch.ChatID, err)
				telemetry.RecordItem("publication", "delivery_failed")
				return
			}
			telemetry.RecordItem("publication", "delivered")

			mu.Lock()
			ok = append(ok, delivered{Delivery: *d, channelID: ch.ID})
			mu.Unlock()
		}(ch)
	}
	wg.Wait()
	return ok
}

// seedMetric creates the zero-counter metric row for a freshly published
// offer. Best effort: tracking rebuilds it on the next collection run anyway.
func (s *Service) seedMetric(ctx context.Context, offerID uuid.UUID, now time.Time) {
	if s.metrics == nil {
		return
	}
	if _, err := s.metrics.GetByOffer(ctx, offerID); err == nil {
		return
	}
	m := &tracking.OfferMetric{ID: uuid.New(), OfferID: offerID, Source: "publication", UpdatedAt: now}
	if err := s.metrics.Upsert(ctx, m); err != nil {
		log.Printf("[publication] offer %s: seed metric: %v", offerID, err)
	}
}
