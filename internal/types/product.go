package types

import "strings"

// ProductRecord is a normalized product extracted from a single page.
// It is created only by the extractor and is immutable once produced.
type ProductRecord struct {
	// ProviderName is the brand or, failing that, the source domain.
	ProviderName string `json:"provider_name" bson:"provider_name"`

	// Name is the product name (falls back to SKU, then the source URL).
	Name string `json:"name" bson:"name"`

	// URL is the page the record was extracted from.
	URL string `json:"url,omitempty" bson:"url,omitempty"`

	// PriceAmount is nil when no price could be derived.
	PriceAmount *float64 `json:"price_amount,omitempty" bson:"price_amount,omitempty"`

	// PriceCurrency defaults to SEK when the page does not declare one.
	PriceCurrency string `json:"price_currency" bson:"price_currency"`

	// INCI is the ordered, de-duplicated ingredient list, or nil.
	INCI []string `json:"inci,omitempty" bson:"inci,omitempty"`
}

// DefaultCurrency is applied when a page declares a price without a currency.
const DefaultCurrency = "SEK"

// HasData reports whether the record carries anything beyond defaults.
func (p *ProductRecord) HasData() bool {
	return p.Name != "" || p.PriceAmount != nil || len(p.INCI) > 0
}

// BrandCandidate is a brand slug discovered on a retailer's brand index.
// It is promoted to verified after a listing-page probe and is never
// demoted back.
type BrandCandidate struct {
	Slug     string `json:"slug"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// CatalogEntry pairs a brand slug with one of its product URLs.
type CatalogEntry struct {
	BrandSlug  string `json:"brand_slug"`
	ProductURL string `json:"product_url"`
}

// NormalizeSlug lowercases and trims a candidate slug for comparison.
func NormalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
