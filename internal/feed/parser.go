package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse indicates the upstream document could not be decoded. It is fatal
// for the run; no output files are written.
var ErrParse = errors.New("feed parse failed")

// sourceDoc mirrors the upstream RSS document. Product fields live in the
// Google merchant namespace; struct tags use the namespace URL so the decoder
// matches them regardless of the prefix the origin chose.
type sourceDoc struct {
	XMLName xml.Name      `xml:"rss"`
	Channel sourceChannel `xml:"channel"`
}

type sourceChannel struct {
	Title string       `xml:"title"`
	Items []sourceItem `xml:"item"`
}

type sourceItem struct {
	ID           string `xml:"http://base.google.com/ns/1.0 id"`
	Title        string `xml:"http://base.google.com/ns/1.0 title"`
	Description  string `xml:"http://base.google.com/ns/1.0 description"`
	Link         string `xml:"http://base.google.com/ns/1.0 link"`
	ImageLink    string `xml:"http://base.google.com/ns/1.0 image_link"`
	Availability string `xml:"http://base.google.com/ns/1.0 availability"`
	Condition    string `xml:"http://base.google.com/ns/1.0 condition"`
	Price        string `xml:"http://base.google.com/ns/1.0 price"`
	Brand        string `xml:"http://base.google.com/ns/1.0 brand"`
	GTIN         string `xml:"http://base.google.com/ns/1.0 gtin"`
}

// priceRE matches the upstream price form, e.g. "380.50 MXN".
var priceRE = regexp.MustCompile(`^\s*\$?\s*(\d+(?:\.\d+)?)\s*MXN\s*$`)

// Parse decodes the upstream feed body into product records. Duplicate IDs
// collapse to the first occurrence so downstream invariants hold.
func Parse(body []byte) ([]ProductRecord, error) {
	var doc sourceDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(doc.Channel.Items) == 0 {
		return nil, fmt.Errorf("%w: no item elements in channel", ErrParse)
	}

	records := make([]ProductRecord, 0, len(doc.Channel.Items))
	seen := make(map[string]struct{}, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		price, err := parsePrice(item.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: item %s: %v", ErrParse, id, err)
		}

		records = append(records, ProductRecord{
			ID:           id,
			Title:        strings.TrimSpace(item.Title),
			RawURL:       strings.TrimSpace(item.Link),
			Price:        price,
			Currency:     CurrencyMXN,
			Availability: strings.TrimSpace(item.Availability),
			Condition:    strings.TrimSpace(item.Condition),
			Brand:        strings.TrimSpace(item.Brand),
			GTIN:         strings.TrimSpace(item.GTIN),
			ImageLink:    strings.TrimSpace(item.ImageLink),
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no items carried a product id", ErrParse)
	}
	return records, nil
}

func parsePrice(raw string) (float64, error) {
	m := priceRE.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("unrecognized price %q", raw)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative price %q", raw)
	}
	return v, nil
}
