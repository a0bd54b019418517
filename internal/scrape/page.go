package scrape

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// errorTitleMarkers flag a dead listing when any of them appears in the page
// title. Matching is case-insensitive.
var errorTitleMarkers = []string{
	"404",
	"not found",
	"página no encontrada",
	"error",
}

// titleSelectors are tried in order when extracting the product heading.
var titleSelectors = []string{
	"h1.product-title",
	"h1.titulo-producto",
	".product-name",
	"h1",
	"title",
}

// imageSelectors cover the store's main image and gallery markup.
var imageSelectors = []string{
	".product-image img",
	".imagen-producto img",
	".main-image img",
	".product-gallery img",
	".galeria-producto img",
	"[class*=\"gallery\"] img",
	"[class*=\"galeria\"] img",
}

// nonProductImageMarkers exclude chrome and decoration assets from the
// extracted gallery.
var nonProductImageMarkers = []string{
	"logo", "banner", "icon", "sprite", "loading",
	"placeholder", "thumb", "favicon", "header",
	"footer", "menu", "nav", "social",
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// maxExtraImages caps the gallery per product.
const maxExtraImages = 5

// parsePage extracts the title, error flag, structured data and gallery from
// a fetched page. A page is an error page when its HTTP status is >= 400 or
// its title carries a 404-style marker.
func parsePage(page Page) (detail ProductDetail, isErrorPage bool, err error) {
	doc, derr := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if derr != nil {
		return ProductDetail{}, false, derr
	}

	detail.PageTitle = pageTitle(doc)
	if page.StatusCode >= 400 || titleHasErrorMarker(detail.PageTitle) {
		return detail, true, nil
	}

	if dp, dperr := extractDataProd(page.Body); dperr == nil {
		dp.fill(&detail)
	}
	detail.Images = extractImages(doc, page.URL)
	return detail, false, nil
}

func pageTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func titleHasErrorMarker(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range errorTitleMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// extractImages walks the gallery selectors and returns absolute URLs of
// plausible product images, de-duplicated, capped at maxExtraImages.
func extractImages(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]struct{})
	var images []string

	for _, sel := range imageSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src := firstAttr(img, "src", "data-src", "data-lazy-src", "data-original")
			if !isProductImage(src) {
				return true
			}
			abs := resolveURL(base, src)
			if _, dup := seen[abs]; dup {
				return true
			}
			seen[abs] = struct{}{}
			images = append(images, abs)
			return len(images) < maxExtraImages
		})
		if len(images) >= maxExtraImages {
			break
		}
	}
	return images
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func resolveURL(base *url.URL, src string) string {
	if base == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

func isProductImage(src string) bool {
	if src == "" {
		return false
	}
	lower := strings.ToLower(src)
	for _, marker := range nonProductImageMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}
