package publication

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is the delivery trail: one row per channel an offer message actually
// reached.
type Record struct {
	ID          uuid.UUID `json:"id"`
	OfferID     uuid.UUID `json:"offer_id"`
	ChannelID   uuid.UUID `json:"channel_id"`
	MessageID   string    `json:"message_id"` // external id assigned by the channel
	DeliveredAt time.Time `json:"delivered_at"`
}

// Payload is the channel-agnostic content of an offer announcement.
type Payload struct {
	Title         string
	StoreName     string
	Price         float64
	OriginalPrice *float64
	DiscountReal  *float64
	URL           string
	ImageURL      string
	Hashtags      []string
}

// Text renders the announcement body. Transports that support rich captions
// use it as-is.
func (p Payload) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔥 %s\n\n", p.Title)
	if p.OriginalPrice != nil && *p.OriginalPrice > p.Price {
		fmt.Fprintf(&b, "💰 R$ %.2f (was R$ %.2f)\n", p.Price, *p.OriginalPrice)
	} else {
		fmt.Fprintf(&b, "💰 R$ %.2f\n", p.Price)
	}
	if p.DiscountReal != nil && *p.DiscountReal > 0 {
		fmt.Fprintf(&b, "📉 %.0f%% below the recent average\n", *p.DiscountReal)
	}
	fmt.Fprintf(&b, "🏪 %s\n\n", p.StoreName)
	fmt.Fprintf(&b, "👉 %s\n", p.URL)

	if len(p.Hashtags) > 0 {
		b.WriteString("\n")
		for i, tag := range p.Hashtags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + strings.ReplaceAll(tag, " ", ""))
		}
		b.WriteString("\n")
	}
	return b.String()
}
