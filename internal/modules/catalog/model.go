package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Store is a marketplace seller. Stores are managed by the admin surface;
// the pipeline only reads them, except for the optional disabled stub created
// at intake when an unknown seller is encountered.
type Store struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Platform   string    `json:"platform"`
	APICode    string    `json:"api_code"`               // marketplace seller id
	AltAPICode string    `json:"alt_api_code,omitempty"` // alternate id some listings expose
	TrustScore int       `json:"trust_score"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tag is a normalized keyword linking products to channels.
type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Channel is an external chat destination for published offers.
type Channel struct {
	ID          uuid.UUID `json:"id"`
	ChatID      string    `json:"chat_id"` // external chat identity
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	Subscribers int       `json:"subscribers"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is a canonical marketplace product. Created and updated by intake;
// never deleted by the pipeline.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`               // store-scoped listing code
	AltCode   string    `json:"alt_code,omitempty"` // alternate listing code
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
