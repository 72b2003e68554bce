package types

import (
	"bytes"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is the result of fetching one URL.
type Page struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the raw response body.
	Body []byte

	// FetchedAt is when the response was received.
	FetchedAt time.Time

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	doc *goquery.Document
}

// Document returns a parsed goquery document, lazily initializing it.
func (p *Page) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, &ParseError{URL: p.URL, Err: err}
	}
	p.doc = doc
	return doc, nil
}

// Text returns the body as a string.
func (p *Page) Text() string {
	return string(p.Body)
}

// Host returns the hostname of the page URL.
func (p *Page) Host() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
