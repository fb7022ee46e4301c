// Package crawl walks the paginated directory listing, discovers detail
// page URLs, and couples the submission and drain flows of one crawl run.
package crawl

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoResults reports a listing page without the expected search-results
// structure. The caller decides whether that ends the crawl; this package
// never silently swallows it.
var ErrNoResults = errors.New("no search results on listing page")

// defaultPageSize is the directory's offset multiplier per listing page.
const defaultPageSize = 15

// ListingPage addresses one page of the directory. Created per pagination
// step and discarded once its detail URLs are extracted.
type ListingPage struct {
	BaseURL  string
	Index    int
	PageSize int
}

// URL renders the page address. Pagination appends an `fi` offset of
// index times page size; page zero is the base URL untouched.
func (p ListingPage) URL() (string, error) {
	if p.Index == 0 {
		return p.BaseURL, nil
	}
	size := p.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}
	q := u.Query()
	q.Set("fi", strconv.Itoa(p.Index*size))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Next returns the following pagination step.
func (p ListingPage) Next() ListingPage {
	return ListingPage{BaseURL: p.BaseURL, Index: p.Index + 1, PageSize: p.PageSize}
}

// ExtractDetailURLs locates the search-results container and returns each
// result anchor's href in page order. A missing container or result list
// returns ErrNoResults; a present-but-empty list returns zero URLs.
func ExtractDetailURLs(doc *goquery.Document) ([]string, error) {
	container := doc.Find("div.pro-results").First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: results container missing", ErrNoResults)
	}
	list := container.Find("ul.hz-pro-search-results").First()
	if list.Length() == 0 {
		return nil, fmt.Errorf("%w: result list missing", ErrNoResults)
	}
	var urls []string
	list.Find("li > a").Each(func(_ int, anchor *goquery.Selection) {
		if href := anchor.AttrOr("href", ""); href != "" {
			urls = append(urls, href)
		}
	})
	return urls, nil
}
