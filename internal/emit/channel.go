// Package emit serializes enriched product records into the Google Merchant
// and Facebook Catalog XML schemas.
package emit

// Channel header values shared by both output feeds.
const (
	ChannelTitle       = "Tienda Accuchek Mexico"
	ChannelLink        = "https://tienda.accu-chek.com.mx"
	ChannelDescription = "Productos Accu-Chek para el cuidado de la diabetes"
)

// googleProductCategory is the Google taxonomy ID for
// Health & Beauty > Health Care > Diabetes Care.
const googleProductCategory = "491"

// maxAdditionalImages caps additional_image_link elements per item.
const maxAdditionalImages = 10
