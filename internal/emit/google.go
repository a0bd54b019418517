package emit

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/feedsmith/feedxml-mx/internal/feed"
	"github.com/feedsmith/feedxml-mx/internal/transform"
)

// googleFeed is the marshal shape of the Google Merchant document. Field tags
// carry the g: prefix literally; the namespace is declared once on the root.
type googleFeed struct {
	XMLName xml.Name      `xml:"rss"`
	Version string        `xml:"version,attr"`
	XmlnsG  string        `xml:"xmlns:g,attr"`
	Channel googleChannel `xml:"channel"`
}

type googleChannel struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	Description string       `xml:"description"`
	Items       []googleItem `xml:"item"`
}

type googleItem struct {
	ID                     string   `xml:"g:id"`
	Title                  string   `xml:"g:title,omitempty"`
	Description            string   `xml:"g:description,omitempty"`
	Link                   string   `xml:"g:link,omitempty"`
	ImageLink              string   `xml:"g:image_link,omitempty"`
	Availability           string   `xml:"g:availability,omitempty"`
	Condition              string   `xml:"g:condition,omitempty"`
	Price                  string   `xml:"g:price,omitempty"`
	SalePrice              string   `xml:"g:sale_price,omitempty"`
	SalePriceEffectiveDate string   `xml:"g:sale_price_effective_date,omitempty"`
	Brand                  string   `xml:"g:brand,omitempty"`
	GTIN                   string   `xml:"g:gtin,omitempty"`
	MPN                    string   `xml:"g:mpn,omitempty"`
	GoogleProductCategory  string   `xml:"g:google_product_category,omitempty"`
	CustomLabel0           string   `xml:"g:custom_label_0,omitempty"`
	CustomLabel1           string   `xml:"g:custom_label_1,omitempty"`
	CustomLabel2           string   `xml:"g:custom_label_2,omitempty"`
	CustomLabel3           string   `xml:"g:custom_label_3,omitempty"`
	AdditionalImageLinks   []string `xml:"g:additional_image_link,omitempty"`
}

// Google serializes the records into the Google Merchant feed. Records
// flagged as error pages or missing an id are skipped. Returns the document
// and the number of items it contains.
func Google(records []feed.ProductRecord, now time.Time) ([]byte, int, error) {
	doc := googleFeed{
		Version: "2.0",
		XmlnsG:  feed.GoogleNS,
		Channel: googleChannel{
			Title:       ChannelTitle,
			Link:        ChannelLink,
			Description: ChannelDescription,
		},
	}

	for _, record := range records {
		if record.IsErrorPage || record.ID == "" {
			continue
		}
		doc.Channel.Items = append(doc.Channel.Items, googleItemFrom(record, now))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("marshal google feed: %w", err)
	}
	return append([]byte(xml.Header), out...), len(doc.Channel.Items), nil
}

func googleItemFrom(record feed.ProductRecord, now time.Time) googleItem {
	item := googleItem{
		ID:                    record.ID,
		Title:                 record.Title,
		Description:           record.Description,
		Link:                  record.CanonicalURL,
		ImageLink:             record.ImageLink,
		Availability:          record.Availability,
		Condition:             record.Condition,
		Brand:                 record.Brand,
		GTIN:                  record.GTIN,
		GoogleProductCategory: googleProductCategory,
		CustomLabel0:          productTypeLabel(record.Title),
		AdditionalImageLinks:  additionalImages(record),
	}

	enr := record.Enrichment
	switch {
	case enr.HasDiscount():
		item.Price = transform.FormatGooglePrice(enr.OriginalPrice, record.Currency)
		item.SalePrice = transform.FormatGooglePrice(enr.SalePrice, record.Currency)
		day := now.Format("2006-01-02")
		item.SalePriceEffectiveDate = day + "/" + day
	case enr != nil && enr.SalePrice > 0:
		item.Price = transform.FormatGooglePrice(enr.SalePrice, record.Currency)
	default:
		item.Price = transform.FormatGooglePrice(record.Price, record.Currency)
	}

	if enr != nil {
		item.MPN = enr.SKU
		item.CustomLabel1 = priceRangeLabel(enr.SalePrice)
		if enr.DiscountPercent > 0 {
			item.CustomLabel2 = "en_promocion"
		}
		item.CustomLabel3 = stockLabel(enr.StockQuantity)
		if enr.StockQuantity != nil {
			item.Availability = normalizeAvailability(record.Availability, enr.StockQuantity)
		}
	}
	return item
}
