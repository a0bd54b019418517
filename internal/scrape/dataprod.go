package scrape

import (
	"encoding/json"
	"errors"
	"regexp"
)

// ErrNoDataProd indicates the page carries no parseable dataProd block.
var ErrNoDataProd = errors.New("dataProd block not found")

// dataProdRE captures the store's embedded product object. The block is a
// single JS object literal assigned to dataProd, terminated by a semicolon.
var dataProdRE = regexp.MustCompile(`(?s)(?:let|var)?\s*dataProd\s*=\s*(\{.*?\});`)

// dotNetDateRE rewrites the ASP.NET wire form /Date(1234567890)/ into a
// plain JSON string so the block parses.
var dotNetDateRE = regexp.MustCompile(`\\?/Date\((\d+)\)\\?/`)

// dataProd mirrors the store's embedded product object. Only the fields the
// pipeline consumes are decoded.
type dataProd struct {
	SKU              string      `json:"sku"`
	PriceWithTax     float64     `json:"precioConIVA"`
	Discount         float64     `json:"descuento"`
	Available        *int        `json:"disponibles"`
	Description      string      `json:"descripcion"`
	LongDescription  string      `json:"descripcionLarga"`
	Pieces           int         `json:"piezas"`
	CompatibleMeter  string      `json:"modeloCompatible"`
	Promotions       *promotions `json:"promociones"`
}

type promotions struct {
	UniqueDiscounts []uniqueDiscount `json:"descuentosUnicos"`
}

type uniqueDiscount struct {
	Description string  `json:"descripcion"`
	Discount    float64 `json:"descuento"`
}

// extractDataProd locates and decodes the dataProd object in raw page HTML.
func extractDataProd(body []byte) (*dataProd, error) {
	m := dataProdRE.FindSubmatch(body)
	if m == nil {
		return nil, ErrNoDataProd
	}
	raw := dotNetDateRE.ReplaceAll(m[1], []byte(`"$1"`))
	var dp dataProd
	if err := json.Unmarshal(raw, &dp); err != nil {
		return nil, ErrNoDataProd
	}
	return &dp, nil
}

// fill copies the decoded block into a ProductDetail. Promotion data, when
// present, wins over the generic discount field; the original price is
// back-computed from the discounted one.
func (dp *dataProd) fill(detail *ProductDetail) {
	detail.SKU = dp.SKU
	detail.SalePrice = dp.PriceWithTax
	detail.StockQuantity = dp.Available
	detail.PackSize = dp.Pieces
	detail.MeterModel = dp.CompatibleMeter

	if dp.LongDescription != "" {
		detail.LongDescription = dp.LongDescription
	} else {
		detail.LongDescription = dp.Description
	}

	discount := dp.Discount
	if dp.Promotions != nil && len(dp.Promotions.UniqueDiscounts) > 0 {
		promo := dp.Promotions.UniqueDiscounts[0]
		detail.PromotionText = promo.Description
		if promo.Discount > 0 {
			discount = promo.Discount
		}
	}
	if discount > 0 && discount < 100 {
		detail.DiscountPercent = discount
		if detail.SalePrice > 0 {
			detail.OriginalPrice = detail.SalePrice / (1 - discount/100)
		}
	}
}
