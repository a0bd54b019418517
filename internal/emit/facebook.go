package emit

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/feedsmith/feedxml-mx/internal/feed"
	"github.com/feedsmith/feedxml-mx/internal/transform"
)

// facebookFeed is the marshal shape of the Facebook Catalog document. Element
// names are flat; there is no namespace prefix.
type facebookFeed struct {
	XMLName xml.Name        `xml:"rss"`
	Version string          `xml:"version,attr"`
	Channel facebookChannel `xml:"channel"`
}

type facebookChannel struct {
	Title       string         `xml:"title"`
	Link        string         `xml:"link"`
	Description string         `xml:"description"`
	Items       []facebookItem `xml:"item"`
}

type facebookItem struct {
	ID                   string   `xml:"id"`
	Title                string   `xml:"title"`
	Description          string   `xml:"description"`
	Availability         string   `xml:"availability"`
	Quantity             string   `xml:"quantity,omitempty"`
	Condition            string   `xml:"condition"`
	Price                string   `xml:"price"`
	SalePrice            string   `xml:"sale_price,omitempty"`
	Link                 string   `xml:"link"`
	ImageLink            string   `xml:"image_link"`
	Brand                string   `xml:"brand"`
	GTIN                 string   `xml:"gtin"`
	MPN                  string   `xml:"mpn,omitempty"`
	AdditionalImageLinks []string `xml:"additional_image_link,omitempty"`
}

// requiredFields lists what every Facebook item must carry. A record unable
// to fill one of them is excluded from the catalog and counted.
func (it facebookItem) missingRequired() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"id", it.ID},
		{"title", it.Title},
		{"description", it.Description},
		{"availability", it.Availability},
		{"condition", it.Condition},
		{"price", it.Price},
		{"link", it.Link},
		{"image_link", it.ImageLink},
		{"brand", it.Brand},
		{"gtin", it.GTIN},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// FacebookResult reports what the Facebook emitter produced.
type FacebookResult struct {
	Document []byte
	Included int
	// ExcludedMissingFields counts records dropped for lacking a required
	// field, keyed by product ID.
	ExcludedMissingFields map[string][]string
}

// Facebook serializes the records into the Facebook Catalog feed. Records
// flagged as error pages are skipped; records missing a required field are
// excluded and reported rather than emitted with empty elements.
func Facebook(records []feed.ProductRecord) (FacebookResult, error) {
	doc := facebookFeed{
		Version: "2.0",
		Channel: facebookChannel{
			Title:       ChannelTitle,
			Link:        ChannelLink,
			Description: ChannelDescription,
		},
	}
	excluded := make(map[string][]string)

	for _, record := range records {
		if record.IsErrorPage {
			continue
		}
		item := facebookItemFrom(record)
		if missing := item.missingRequired(); len(missing) > 0 {
			excluded[record.ID] = missing
			continue
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return FacebookResult{}, fmt.Errorf("marshal facebook feed: %w", err)
	}
	return FacebookResult{
		Document:              append([]byte(xml.Header), out...),
		Included:              len(doc.Channel.Items),
		ExcludedMissingFields: excluded,
	}, nil
}

func facebookItemFrom(record feed.ProductRecord) facebookItem {
	enr := record.Enrichment
	var quantity *int
	if enr != nil {
		quantity = enr.StockQuantity
	}

	item := facebookItem{
		ID:                   record.ID,
		Title:                record.Title,
		Description:          record.Description,
		Availability:         normalizeAvailability(record.Availability, quantity),
		Condition:            normalizeCondition(record.Condition),
		Link:                 record.CanonicalURL,
		ImageLink:            record.ImageLink,
		Brand:                record.Brand,
		GTIN:                 record.GTIN,
		AdditionalImageLinks: additionalImages(record),
	}
	if item.Brand == "" {
		item.Brand = "Accu-Chek"
	}
	if quantity != nil && *quantity > 0 {
		item.Quantity = strconv.Itoa(*quantity)
	}

	switch {
	case enr.HasDiscount():
		item.Price = transform.FormatFacebookPrice(enr.OriginalPrice)
		item.SalePrice = transform.FormatFacebookPrice(enr.SalePrice)
	case enr != nil && enr.SalePrice > 0:
		item.Price = transform.FormatFacebookPrice(enr.SalePrice)
	case record.Price > 0:
		item.Price = transform.FormatFacebookPrice(record.Price)
	}

	if enr != nil {
		item.MPN = enr.SKU
	}
	return item
}
