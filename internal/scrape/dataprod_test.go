package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDataProdPage = `<html><head><title>50 Tiras Reactivas</title></head>
<body><script>
let dataProd = {
  "sku": "1916",
  "precioConIVA": 380.50,
  "descuento": 0,
  "disponibles": 12,
  "descripcion": "Tiras reactivas",
  "descripcionLarga": "Tiras reactivas para medición de glucosa con tecnología avanzada",
  "piezas": 50,
  "modeloCompatible": "Accu-Chek Instant",
  "fechaAlta": /Date(1714521600000)/,
  "promociones": {"descuentosUnicos": [{"descripcion": "Promo mayo", "descuento": 15}]}
};
</script></body></html>`

func TestExtractDataProd(t *testing.T) {
	t.Parallel()

	dp, err := extractDataProd([]byte(sampleDataProdPage))
	require.NoError(t, err)
	require.Equal(t, "1916", dp.SKU)
	require.Equal(t, 380.50, dp.PriceWithTax)
	require.NotNil(t, dp.Available)
	require.Equal(t, 12, *dp.Available)
	require.Equal(t, 50, dp.Pieces)
	require.Equal(t, "Accu-Chek Instant", dp.CompatibleMeter)
	require.NotNil(t, dp.Promotions)
	require.Len(t, dp.Promotions.UniqueDiscounts, 1)
}

func TestExtractDataProdVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"let form", `<script>let dataProd = {"sku":"1"};</script>`, true},
		{"var form", `<script>var dataProd = {"sku":"1"};</script>`, true},
		{"bare assignment", `<script>dataProd = {"sku":"1"};</script>`, true},
		{"absent", `<script>var other = {};</script>`, false},
		{"unparseable", `<script>let dataProd = {sku: broken};</script>`, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dp, err := extractDataProd([]byte(tt.body))
			if !tt.ok {
				require.ErrorIs(t, err, ErrNoDataProd)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "1", dp.SKU)
		})
	}
}

func TestDataProdFillPromotionWins(t *testing.T) {
	t.Parallel()

	dp, err := extractDataProd([]byte(sampleDataProdPage))
	require.NoError(t, err)

	var detail ProductDetail
	dp.fill(&detail)

	require.Equal(t, 380.50, detail.SalePrice)
	require.Equal(t, 15.0, detail.DiscountPercent)
	require.Equal(t, "Promo mayo", detail.PromotionText)
	require.InDelta(t, 380.50/0.85, detail.OriginalPrice, 1e-9)
	require.Equal(t, "Tiras reactivas para medición de glucosa con tecnología avanzada", detail.LongDescription)
}

func TestDataProdFillGenericDiscount(t *testing.T) {
	t.Parallel()

	dp, err := extractDataProd([]byte(`<script>let dataProd = {"precioConIVA": 100, "descuento": 20, "descripcion": "x"};</script>`))
	require.NoError(t, err)

	var detail ProductDetail
	dp.fill(&detail)
	require.Equal(t, 20.0, detail.DiscountPercent)
	require.InDelta(t, 125.0, detail.OriginalPrice, 1e-9)
	require.Equal(t, "x", detail.LongDescription)
}
