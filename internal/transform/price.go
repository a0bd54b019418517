package transform

import (
	"fmt"
	"strings"
)

// FormatGooglePrice renders a price for the Google feed: two decimals,
// dot separator, currency suffix. 380.5 becomes "380.50 MXN". Values that
// land on a half-cent round to the nearest representable even cent of the
// underlying binary float.
func FormatGooglePrice(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// FormatFacebookPrice renders a price for the Facebook catalog: leading
// dollar sign, comma decimal separator, no currency suffix. 380.5 becomes
// "$380,50".
func FormatFacebookPrice(amount float64) string {
	return "$" + strings.Replace(fmt.Sprintf("%.2f", amount), ".", ",", 1)
}
