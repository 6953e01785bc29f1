package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
)

// Collector refreshes engagement counters for published offers. Collection is
// best effort: a failure on one offer never blocks the rest, and stale
// counters are acceptable until the next run.
type Collector struct {
	offers  offer.Repository
	metrics Repository
	clicks  ClickSource
	sales   SalesSource
}

func NewCollector(offers offer.Repository, metrics Repository, clicks ClickSource, sales SalesSource) *Collector {
	if clicks == nil {
		clicks = PlaceholderSource{}
	}
	if sales == nil {
		sales = PlaceholderSource{}
	}
	return &Collector{offers: offers, metrics: metrics, clicks: clicks, sales: sales}
}

// Name identifies the stage in pipeline logs and metrics.
func (c *Collector) Name() string { return "tracking" }

// Run refreshes the metric row of every published offer.
func (c *Collector) Run(ctx context.Context) error {
	published, err := c.offers.ListByStatus(ctx, offer.StatusPublished)
	if err != nil {
		return fmt.Errorf("tracking: list published: %w", err)
	}

	var refreshed int
	for _, o := range published {
		if err := c.collect(ctx, o); err != nil {
			log.Printf("[tracking] offer %s: %v", o.ID, err)
			continue
		}
		refreshed++
	}
	log.Printf("[tracking] refreshed %d/%d offers", refreshed, len(published))
	return nil
}

func (c *Collector) collect(ctx context.Context, o *offer.Offer) error {
	link := o.LongURL
	if o.ShortURL != nil && *o.ShortURL != "" {
		link = *o.ShortURL
	}

	clicks, err := c.clicks.Clicks(ctx, link)
	if err != nil {
		return fmt.Errorf("clicks: %w", err)
	}
	sales, err := c.sales.Sales(ctx, link)
	if err != nil {
		return fmt.Errorf("sales: %w", err)
	}

	m, err := c.metrics.GetByOffer(ctx, o.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("load metric: %w", err)
		}
		m = &OfferMetric{ID: uuid.New(), OfferID: o.ID}
	}
	m.Clicks = clicks
	m.Sales = sales
	m.Source = c.clicks.Name()
	m.UpdatedAt = time.Now()

	if err := c.metrics.Upsert(ctx, m); err != nil {
		return fmt.Errorf("upsert metric: %w", err)
	}
	return nil
}
