package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/skarsvik/beautycrawl/internal/types"
)

var ingredientHeading = regexp.MustCompile(`(?i)^\s*(ingredienser|ingredients)\b`)

// htmlFallbackStrategy derives a record from plain HTML conventions when
// a page carries no structured product data: Open Graph / document
// title for the name, commerce meta tags or microdata for the price,
// and an "Ingredienser" / "Ingredients" heading for the ingredient
// list. Yields nothing when none of the three could be derived.
type htmlFallbackStrategy struct{}

func (s *htmlFallbackStrategy) Name() string { return "html-fallback" }

func (s *htmlFallbackStrategy) Extract(page *types.Page, domain string) (*types.ProductRecord, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	name := metaContent(doc, `meta[property="og:title"]`)
	if name == "" {
		name = strings.TrimSpace(doc.Find("title").First().Text())
	}

	priceRaw := metaContent(doc, `meta[property="product:price:amount"]`)
	if priceRaw == "" {
		priceRaw = itempropValue(doc, "price")
	}
	currency := metaContent(doc, `meta[property="product:price:currency"]`)
	if currency == "" {
		currency = itempropValue(doc, "priceCurrency")
	}

	ingredients := ingredientsFromHeading(page.Body)

	if name == "" && priceRaw == "" && len(ingredients) == 0 {
		return nil, nil
	}

	var priceAmount *float64
	if p, ok := parsePrice(priceRaw); ok {
		priceAmount = &p
	}
	if currency == "" {
		currency = types.DefaultCurrency
	}
	if name == "" {
		name = page.URL
	}

	return &types.ProductRecord{
		ProviderName:  domain,
		Name:          name,
		URL:           page.URL,
		PriceAmount:   priceAmount,
		PriceCurrency: currency,
		INCI:          ingredients,
	}, nil
}

// metaContent returns the trimmed content attribute of the first
// element matching the selector.
func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

// itempropValue reads a microdata property, preferring the content
// attribute over the element text.
func itempropValue(doc *goquery.Document, prop string) string {
	sel := doc.Find(`[itemprop="` + prop + `"]`).First()
	if v := strings.TrimSpace(sel.AttrOr("content", "")); v != "" {
		return v
	}
	return strings.TrimSpace(sel.Text())
}

// ingredientsFromHeading locates a heading labeled Ingredienser or
// Ingredients and splits the text of its containing block into an
// ingredient list.
func ingredientsFromHeading(body []byte) []string {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	nodes, err := htmlquery.QueryAll(doc, "//h1|//h2|//h3|//h4|//h5|//h6|//dt|//strong|//b")
	if err != nil {
		return nil
	}

	for _, n := range nodes {
		label := strings.TrimSpace(htmlquery.InnerText(n))
		if !ingredientHeading.MatchString(label) {
			continue
		}
		if items := splitIngredients(blockTextAfterLabel(n, label)); len(items) > 0 {
			return items
		}
	}
	return nil
}

// blockTextAfterLabel takes the full text of the heading's containing
// block and strips everything up to and including the heading label.
func blockTextAfterLabel(heading *html.Node, label string) string {
	parent := heading.Parent
	if parent == nil {
		return ""
	}
	text := htmlquery.InnerText(parent)
	if idx := strings.Index(strings.ToLower(text), strings.ToLower(label)); idx >= 0 {
		text = text[idx+len(label):]
	}
	return text
}
