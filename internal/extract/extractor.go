package extract

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/skarsvik/beautycrawl/internal/types"
)

// Strategy is one way of pulling a product record out of a fetched page.
// Strategies are tried in order; the first one returning a record wins.
// Returning (nil, nil) means "this page has nothing for me".
type Strategy interface {
	Name() string
	Extract(page *types.Page, domain string) (*types.ProductRecord, error)
}

// Extractor turns fetched pages into ProductRecords by running an
// ordered strategy chain: raw JSON-LD scan, DOM JSON-LD scan, then the
// HTML meta-tag fallback.
type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New creates an Extractor with the default strategy order.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{
		strategies: []Strategy{
			&jsonldRawStrategy{},
			&jsonldDOMStrategy{},
			&htmlFallbackStrategy{},
		},
		logger: logger.With("component", "extractor"),
	}
}

// Extract runs the strategy chain over the page. A strategy error is
// logged and treated as "no record from that strategy"; it never
// propagates to the caller. Returns nil when no strategy produced a
// record.
func (e *Extractor) Extract(page *types.Page, domain string) *types.ProductRecord {
	if domain == "" {
		domain = page.Host()
	}

	for _, s := range e.strategies {
		rec, err := s.Extract(page, domain)
		if err != nil {
			e.logger.Debug("extraction strategy failed",
				"strategy", s.Name(), "url", page.URL, "error", err)
			continue
		}
		if rec != nil {
			e.logger.Debug("extracted product",
				"strategy", s.Name(), "url", page.URL, "name", rec.Name)
			return rec
		}
	}
	return nil
}

// assembleRecord builds a ProductRecord from a structured-data product
// object. The domain serves as the provider fallback when no brand is
// declared.
func assembleRecord(pdata map[string]any, pageURL, domain string) *types.ProductRecord {
	provider := domain
	switch brand := pdata["brand"].(type) {
	case map[string]any:
		if n := asString(brand["name"]); n != "" {
			provider = n
		}
	case string:
		if brand != "" {
			provider = brand
		}
	}

	name := asString(pdata["name"])
	if name == "" {
		name = asString(pdata["sku"])
	}
	if name == "" {
		name = pageURL
	}

	var priceAmount *float64
	currency := ""
	if offers, ok := pdata["offers"].(map[string]any); ok {
		raw := offers["price"]
		if raw == nil || asString(raw) == "" {
			raw = offers["lowPrice"]
		}
		if p, ok := parsePrice(raw); ok {
			priceAmount = &p
		}
		currency = asString(offers["priceCurrency"])
	}
	if currency == "" {
		currency = types.DefaultCurrency
	}

	return &types.ProductRecord{
		ProviderName:  provider,
		Name:          name,
		URL:           pageURL,
		PriceAmount:   priceAmount,
		PriceCurrency: currency,
		INCI:          NormalizeIngredients(pdata),
	}
}

// parsePrice coerces a structured-data price value (JSON number or
// string) to a float.
func parsePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case int:
		return float64(p), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(p, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asString renders a structured-data value as a string; nil becomes "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
