package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/skarsvik/beautycrawl/internal/types"
)

const (
	ldScriptOpen  = `<script type="application/ld+json">`
	ldScriptClose = `</script>`
)

// jsonldRawStrategy scans the raw page text for ld+json script blocks.
// Cheap and covers the vast majority of real pages, but it only matches
// the canonical attribute spelling; the DOM strategy below picks up the
// rest.
type jsonldRawStrategy struct{}

func (s *jsonldRawStrategy) Name() string { return "jsonld-raw" }

func (s *jsonldRawStrategy) Extract(page *types.Page, domain string) (*types.ProductRecord, error) {
	html := string(page.Body)
	pos := 0
	for {
		idx := strings.Index(html[pos:], ldScriptOpen)
		if idx < 0 {
			break
		}
		start := pos + idx + len(ldScriptOpen)
		end := strings.Index(html[start:], ldScriptClose)
		if end < 0 {
			break
		}
		chunk := html[start : start+end]
		pos = start + end + len(ldScriptClose)

		if pdata := selectProduct([]byte(chunk)); pdata != nil {
			return assembleRecord(pdata, page.URL, domain), nil
		}
	}
	return nil, nil
}

// jsonldDOMStrategy finds ld+json blocks through a parsed document tree.
// Runs only when the raw scan found nothing, which happens with unusual
// attribute ordering, extra attributes, or single quotes.
type jsonldDOMStrategy struct{}

func (s *jsonldDOMStrategy) Name() string { return "jsonld-dom" }

func (s *jsonldDOMStrategy) Extract(page *types.Page, domain string) (*types.ProductRecord, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	var record *types.ProductRecord
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if pdata := selectProduct([]byte(sel.Text())); pdata != nil {
			record = assembleRecord(pdata, page.URL, domain)
			return false
		}
		return true
	})
	return record, nil
}

// selectProduct parses one ld+json chunk and returns the first object
// whose @type is "Product" (directly or within a type array). A chunk
// may hold a single object or an array of objects. Malformed JSON yields
// nil, never an error.
func selectProduct(chunk []byte) map[string]any {
	var data any
	if err := json.Unmarshal(chunk, &data); err != nil {
		return nil
	}

	candidates, ok := data.([]any)
	if !ok {
		candidates = []any{data}
	}
	for _, c := range candidates {
		obj, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if isProductType(obj["@type"]) {
			return obj
		}
	}
	return nil
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}
