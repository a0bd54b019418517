// Package feed fetches and parses the upstream merchant product feed.
package feed

// GoogleNS is the namespace the upstream feed uses for product fields.
const GoogleNS = "http://base.google.com/ns/1.0"

// Source feed element names, exactly as they appear (inside the g: namespace)
// in the upstream document. Kept as constants so the wire vocabulary lives in
// one place instead of being re-derived from struct tags.
const (
	TagItem         = "item"
	TagID           = "id"
	TagTitle        = "title"
	TagDescription  = "description"
	TagLink         = "link"
	TagImageLink    = "image_link"
	TagAvailability = "availability"
	TagCondition    = "condition"
	TagPrice        = "price"
	TagBrand        = "brand"
	TagGTIN         = "gtin"
)

// CurrencyMXN is the only currency this feed carries.
const CurrencyMXN = "MXN"

// ProductRecord is the platform-agnostic view of one upstream item. Records
// are built fresh each run; the enrichment stage mutates Description,
// ExtraImages, IsErrorPage and Enrichment in place before emission.
type ProductRecord struct {
	ID           string
	Title        string
	RawURL       string
	CanonicalURL string
	Price        float64
	Currency     string
	Availability string
	Condition    string
	Brand        string
	GTIN         string
	ImageLink    string
	Description  string
	ExtraImages  []string
	IsErrorPage  bool
	Enrichment   *Enrichment
}

// Enrichment carries optional page-scraped attributes merged into a record
// before emission. Zero-valued prices mean "unknown".
type Enrichment struct {
	SKU             string
	SalePrice       float64
	OriginalPrice   float64
	DiscountPercent float64
	PromotionText   string
	StockQuantity   *int
}

// HasDiscount reports whether the scraped prices describe a real markdown.
func (e *Enrichment) HasDiscount() bool {
	return e != nil && e.OriginalPrice > 0 && e.SalePrice > 0 && e.OriginalPrice > e.SalePrice
}

// EffectivePrice returns the price a buyer pays today, falling back to fallback
// when the enrichment carries no price information.
func (e *Enrichment) EffectivePrice(fallback float64) float64 {
	if e != nil && e.SalePrice > 0 {
		return e.SalePrice
	}
	return fallback
}
