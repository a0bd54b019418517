package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleProductPage = `<html><head><title>50 Tiras Reactivas Accu-Chek Instant</title></head>
<body>
<h1 class="product-title">50 Tiras Reactivas Accu-Chek Instant</h1>
<div class="product-image"><img src="https://cdn.gdar.com.mx/img/1916-front.jpg"></div>
<div class="product-gallery">
  <img src="/img/1916-side.png">
  <img data-src="https://cdn.gdar.com.mx/img/1916-box.webp">
  <img src="https://cdn.gdar.com.mx/assets/logo.png">
  <img src="https://cdn.gdar.com.mx/img/1916-front.jpg">
  <img src="/assets/banner-promo.jpg">
</div>
<script>let dataProd = {"sku": "1916", "precioConIVA": 380.50};</script>
</body></html>`

func TestParsePageProduct(t *testing.T) {
	t.Parallel()

	page := Page{
		URL:        "https://tienda.accu-chek.com.mx/Main/Producto/1916/",
		StatusCode: 200,
		Body:       []byte(sampleProductPage),
	}
	detail, isErrorPage, err := parsePage(page)
	require.NoError(t, err)
	require.False(t, isErrorPage)
	require.Equal(t, "50 Tiras Reactivas Accu-Chek Instant", detail.PageTitle)
	require.Equal(t, "1916", detail.SKU)
	require.Equal(t, 380.50, detail.SalePrice)

	// Relative URLs resolve against the page, chrome assets are excluded,
	// duplicates collapse.
	require.Equal(t, []string{
		"https://cdn.gdar.com.mx/img/1916-front.jpg",
		"https://tienda.accu-chek.com.mx/img/1916-side.png",
		"https://cdn.gdar.com.mx/img/1916-box.webp",
	}, detail.Images)
}

func TestParsePageErrorByTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"404 marker", "404 - Página no encontrada", true},
		{"not found marker", "Product Not Found", true},
		{"error marker", "Error interno", true},
		{"normal title", "Medidor Accu-Chek Guide", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			body := `<html><head><title>` + tt.title + `</title></head><body></body></html>`
			_, isErrorPage, err := parsePage(Page{StatusCode: 200, Body: []byte(body)})
			require.NoError(t, err)
			require.Equal(t, tt.want, isErrorPage)
		})
	}
}

func TestParsePageErrorByStatus(t *testing.T) {
	t.Parallel()

	body := `<html><head><title>Algo salió mal</title></head><body></body></html>`
	_, isErrorPage, err := parsePage(Page{StatusCode: 404, Body: []byte(body)})
	require.NoError(t, err)
	require.True(t, isErrorPage)
}

func TestParsePageImageCap(t *testing.T) {
	t.Parallel()

	body := `<html><body><div class="product-gallery">` +
		`<img src="/p/a1.jpg"><img src="/p/a2.jpg"><img src="/p/a3.jpg">` +
		`<img src="/p/a4.jpg"><img src="/p/a5.jpg"><img src="/p/a6.jpg">` +
		`</div></body></html>`
	detail, _, err := parsePage(Page{URL: "https://example.com/x", StatusCode: 200, Body: []byte(body)})
	require.NoError(t, err)
	require.Len(t, detail.Images, maxExtraImages)
}
