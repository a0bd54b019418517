// Package transform holds the pure record-shaping logic applied between the
// upstream feed and the emitted catalogs: URL canonicalization, price
// formatting per target, and description derivation.
package transform

import "regexp"

// productPathRE captures everything up to and including the numeric product
// segment of a store detail URL. Slug text and query noise after it are
// dropped.
var productPathRE = regexp.MustCompile(`^(.*?/Main/Producto/\d+/)`)

// CanonicalizeURL trims a product link down to its stable form ending at the
// product id segment. URLs that do not match the expected shape come back
// unchanged. The operation is idempotent.
func CanonicalizeURL(raw string) string {
	m := productPathRE.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return m[1]
}
