package emit

import (
	"strings"

	"github.com/feedsmith/feedxml-mx/internal/feed"
)

// productTypeLabel maps a title onto the campaign segmentation label.
// Keywords are checked in order; kit and promo pack outrank product lines.
func productTypeLabel(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "kit") || strings.Contains(lower, "promo pack"):
		return "kit_producto"
	case strings.Contains(lower, "tiras reactivas"):
		return "tiras_reactivas"
	case strings.Contains(lower, "lancetas"):
		return "lancetas"
	case strings.Contains(lower, "glucómetro") || strings.Contains(lower, "medidor"):
		return "glucometro"
	default:
		return ""
	}
}

// priceRangeLabel buckets the scraped sale price for bid segmentation.
func priceRangeLabel(salePrice float64) string {
	switch {
	case salePrice <= 0:
		return ""
	case salePrice > 1000:
		return "premium"
	case salePrice > 500:
		return "mid_range"
	default:
		return "economico"
	}
}

// stockLabel buckets known stock quantities.
func stockLabel(quantity *int) string {
	switch {
	case quantity == nil:
		return ""
	case *quantity > 50:
		return "alto_stock"
	case *quantity > 10:
		return "stock_medio"
	default:
		return "stock_bajo"
	}
}

// normalizeAvailability maps source availability text onto the platform
// vocabulary, letting a known stock quantity override the text.
func normalizeAvailability(raw string, quantity *int) string {
	if quantity != nil {
		if *quantity > 0 {
			return "in stock"
		}
		return "out of stock"
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in stock", "available":
		return "in stock"
	case "out of stock", "unavailable":
		return "out of stock"
	default:
		return "in stock"
	}
}

// normalizeCondition maps source condition text onto new/refurbished/used.
// Medical products default to new.
func normalizeCondition(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "refurbished") || strings.Contains(lower, "reacondicionado"):
		return "refurbished"
	case strings.Contains(lower, "used") || strings.Contains(lower, "usado"):
		return "used"
	default:
		return "new"
	}
}

// additionalImages filters the record's gallery down to URLs distinct from
// the primary image, capped for the platform.
func additionalImages(record feed.ProductRecord) []string {
	if len(record.ExtraImages) == 0 {
		return nil
	}
	out := make([]string, 0, len(record.ExtraImages))
	for _, img := range record.ExtraImages {
		if img == "" || img == record.ImageLink {
			continue
		}
		out = append(out, img)
		if len(out) == maxAdditionalImages {
			break
		}
	}
	return out
}
