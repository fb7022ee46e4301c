package crawl

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestListingPageURL(t *testing.T) {
	base := "https://www.houzz.com/professionals/general-contractor"
	page := ListingPage{BaseURL: base, PageSize: 15}

	u, err := page.URL()
	require.NoError(t, err)
	require.Equal(t, base, u)

	u, err = page.Next().URL()
	require.NoError(t, err)
	require.Equal(t, base+"?fi=15", u)

	u, err = page.Next().Next().Next().URL()
	require.NoError(t, err)
	require.Equal(t, base+"?fi=45", u)
}

func TestListingPageURLPreservesExistingQuery(t *testing.T) {
	page := ListingPage{BaseURL: "https://www.houzz.com/professionals?query=remodel", Index: 1, PageSize: 15}
	u, err := page.URL()
	require.NoError(t, err)
	require.Contains(t, u, "fi=15")
	require.Contains(t, u, "query=remodel")
}

func TestListingPageURLDefaultPageSize(t *testing.T) {
	page := ListingPage{BaseURL: "https://www.houzz.com/professionals", Index: 2}
	u, err := page.URL()
	require.NoError(t, err)
	require.Contains(t, u, "fi=30")
}

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestExtractDetailURLs(t *testing.T) {
	doc := mustDoc(t, `<div class="pro-results">
		<ul class="hz-pro-search-results">
			<li><a href="https://www.houzz.com/pro/one">One</a></li>
			<li><a href="https://www.houzz.com/pro/two">Two</a></li>
			<li><span>sponsored, no link</span></li>
		</ul>
	</div>`)

	urls, err := ExtractDetailURLs(doc)
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.houzz.com/pro/one", "https://www.houzz.com/pro/two"}, urls)
}

func TestExtractDetailURLsMissingContainer(t *testing.T) {
	_, err := ExtractDetailURLs(mustDoc(t, `<div><p>not a results page</p></div>`))
	require.ErrorIs(t, err, ErrNoResults)
	require.True(t, IsNoResults(err))
}

func TestExtractDetailURLsMissingList(t *testing.T) {
	_, err := ExtractDetailURLs(mustDoc(t, `<div class="pro-results"><p>empty</p></div>`))
	require.ErrorIs(t, err, ErrNoResults)
}

func TestExtractDetailURLsEmptyListIsNotAnError(t *testing.T) {
	urls, err := ExtractDetailURLs(mustDoc(t, `<div class="pro-results"><ul class="hz-pro-search-results"></ul></div>`))
	require.NoError(t, err)
	require.Empty(t, urls)
}
