package intake

// Candidate is one raw offer record produced by the feed source.
type Candidate struct {
	StoreItemID   string   `json:"store_item_id"` // store-scoped product identity
	StoreCode     string   `json:"store_code"`    // marketplace seller id
	StoreName     string   `json:"store_name,omitempty"`
	Platform      string   `json:"platform,omitempty"`
	Name          string   `json:"name"`
	CurrentPrice  float64  `json:"current_price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	DiscountPct   *float64 `json:"discount_pct,omitempty"` // discount advertised by the marketplace
	SourceURL     string   `json:"source_url"`
	ImageURL      string   `json:"image_url,omitempty"`
}

// Result classifies the outcome of processing one candidate. Suppression is an
// expected outcome and must stay distinguishable from creation.
type Result string

const (
	ResultCreated             Result = "created"
	ResultDuplicateSuppressed Result = "duplicate_suppressed"
	ResultPriceRecorded       Result = "price_recorded" // open offer exists, price moved
	ResultRejectedDiscount    Result = "rejected_discount"
	ResultRejectedIneligible  Result = "rejected_ineligible"
	ResultRejectedStore       Result = "rejected_store"
)

// Summary aggregates one intake run.
type Summary struct {
	Processed int
	Created   int
	ByResult  map[Result]int
	Failures  int
}
