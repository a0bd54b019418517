// Package scrape implements the optional enrichment stage: it visits each
// product's detail page, extracts the embedded structured-data block and
// gallery images, and flags dead listings.
package scrape

import "context"

// State tracks a product through the enrichment stage.
type State string

// Per-product enrichment states. Every product starts Pending and ends in
// exactly one of the other three.
const (
	// StatePending means the product page has not been visited yet.
	StatePending State = "pending"
	// StateFetched means the page was retrieved and parsed; enrichment data
	// may or may not have been found.
	StateFetched State = "fetched"
	// StateFailed means the fetch failed (network error, timeout). The
	// product keeps its basic description and stays in the output feeds.
	StateFailed State = "failed"
	// StateErrorPage means the page is a 404 or placeholder. The product is
	// excluded from all output feeds.
	StateErrorPage State = "error_page"
)

// Page is a fetched product page snapshot.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	UsedJS     bool
}

// PageFetcher retrieves a product page over plain HTTP.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (Page, error)
}

// Renderer produces a page snapshot with JavaScript executed.
type Renderer interface {
	Render(ctx context.Context, url string) (Page, error)
	Close(ctx context.Context) error
}

// Detector decides whether a plain-HTTP snapshot needs a JS render pass.
type Detector interface {
	NeedsJS(ctx context.Context, page Page) bool
}

// ProductDetail is everything the page yields for one product.
type ProductDetail struct {
	PageTitle       string
	SKU             string
	SalePrice       float64
	OriginalPrice   float64
	DiscountPercent float64
	PromotionText   string
	StockQuantity   *int
	LongDescription string
	PackSize        int
	MeterModel      string
	Images          []string
}

// Result is the outcome of enriching one product.
type Result struct {
	ProductID string
	State     State
	Detail    *ProductDetail
	Err       error
}
