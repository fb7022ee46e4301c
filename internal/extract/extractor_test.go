package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"houzz-pro-scraper/internal/scraper"
)

const detailPageFixture = `<html><body><main>
<header pro_user_id="7">
  <div>
    <div><img src="https://img.example/logo.png"></div>
    <div>
      <span>Acme Builders</span>
      <span>Verified License</span>
      <span>4.9</span>
      <span>General Contractors</span>
      <span>12 Reviews</span>
      <span>3 Hires on Houzz</span>
      <span>Responds Quickly</span>
    </div>
  </div>
  <div data-container="Pro Actions"><button data-entity-id="42">Contact</button></div>
</header>
<section id="business">
  <h2>Business Details</h2>
  <div>
    <div><div>Business Name</div><div>Acme Builders LLC</div></div>
    <div><div>Typical Job Cost</div><div>$1,000 - $20,000</div></div>
    <div><div>Website</div><div>https://acme.example</div></div>
    <div><div>Phone Number</div></div>
  </div>
</section>
<section id="reviews">
  <div class="reviews-wrapper">
    <div class="aspect-review-summary"><span>Communication</span><i></i><span>4.8</span></div>
    <div class="aspect-review-summary"><span>Work Quality</span><i></i><span>5</span></div>
  </div>
</section>
</main></body></html>`

// fakeFetcher serves canned responses keyed by URL and records requests.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]scraper.FetchResponse
	errs      map[string]error
	requests  []scraper.FetchRequest
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: map[string]scraper.FetchResponse{},
		errs:      map[string]error{},
	}
}

func (f *fakeFetcher) serve(url, body string) {
	f.responses[url] = scraper.FetchResponse{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req scraper.FetchRequest) (scraper.FetchResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err, ok := f.errs[req.URL]; ok {
		return scraper.FetchResponse{}, err
	}
	resp, ok := f.responses[req.URL]
	if !ok {
		return scraper.FetchResponse{}, scraper.ClassifyFetchError(req.URL, http.StatusNotFound, errors.New("not served"))
	}
	return resp, nil
}

func (f *fakeFetcher) lastRequest() scraper.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

const (
	testDetailURL = "https://www.houzz.com/professionals/acme-builders"
	testFeedURL   = "https://feed.test/profileReviewsAjax"
)

func newTestExtractor(fetcher scraper.Fetcher) *Extractor {
	return New(fetcher, nil, nil, nil, Config{ReviewsFeedURL: testFeedURL}, zap.NewNop())
}

func TestExtractFullProfile(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve(testDetailURL, detailPageFixture)
	fetcher.serve(testFeedURL, reviewFeedFixture)

	property, err := newTestExtractor(fetcher).Extract(context.Background(), testDetailURL)
	require.NoError(t, err)
	require.NotNil(t, property)

	require.Equal(t, "Acme Builders", property.Title)
	require.Equal(t, "General Contractors", property.Category)
	require.Equal(t, 4.9, property.Rating)
	require.Equal(t, 12, property.TotalReviews)
	require.Equal(t, "https://img.example/logo.png", property.CompanyLogo)

	require.Equal(t, "Acme Builders LLC", property.Details.BusinessName)
	require.Equal(t, "https://acme.example", property.Details.Website)
	require.NotNil(t, property.Details.TypicalJobCost)
	require.Equal(t, 1000.0, *property.Details.TypicalJobCost.Low)
	require.Equal(t, 20000.0, *property.Details.TypicalJobCost.High)

	require.NotNil(t, property.Reviews.Communication)
	require.Equal(t, 4.8, *property.Reviews.Communication)
	require.NotNil(t, property.Reviews.WorkQuality)
	require.Equal(t, 5.0, *property.Reviews.WorkQuality)
	require.Len(t, property.Reviews.Reviews, 2)
	require.Equal(t, "Pat", property.Reviews.Reviews[0].Reviewer.DisplayName)

	feedReq := fetcher.lastRequest()
	require.Equal(t, testFeedURL, feedReq.URL)
	require.Equal(t, "42", feedReq.Params.Get("proId"))
	require.Equal(t, "7", feedReq.Params.Get("userId"))
	require.Equal(t, "0", feedReq.Params.Get("fromItem"))
}

func TestExtractFetchFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs[testDetailURL] = scraper.ClassifyFetchError(testDetailURL, http.StatusForbidden, errors.New("denied"))

	_, err := newTestExtractor(fetcher).Extract(context.Background(), testDetailURL)
	require.Error(t, err)
	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, StageFetch, ee.Stage)
	var fe *scraper.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusForbidden, fe.StatusCode)
}

func TestExtractNoHeaderFailsValidation(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve(testDetailURL, `<html><body><main><p>nothing here</p></main></body></html>`)

	_, err := newTestExtractor(fetcher).Extract(context.Background(), testDetailURL)
	require.Error(t, err)
	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, StageValidate, ee.Stage)
}

func TestExtractWithoutFeedIdentifiers(t *testing.T) {
	// A header missing the identifier pair yields a record with no reviews
	// rather than a failed extraction.
	page := `<html><body><main>
<header>
  <div>
    <div><img src="logo.png"></div>
    <div><span>Acme Builders</span><span>General Contractor</span></div>
  </div>
</header>
</main></body></html>`
	fetcher := newFakeFetcher()
	fetcher.serve(testDetailURL, page)

	property, err := newTestExtractor(fetcher).Extract(context.Background(), testDetailURL)
	require.NoError(t, err)
	require.Equal(t, "Acme Builders", property.Title)
	require.Equal(t, "General Contractor", property.Category)
	require.Equal(t, 0.0, property.Rating)
	require.Empty(t, property.Reviews.Reviews)
	require.Len(t, fetcher.requests, 1)
}

func TestExtractFeedFailureDegrades(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve(testDetailURL, detailPageFixture)
	fetcher.errs[testFeedURL] = scraper.ClassifyFetchError(testFeedURL, http.StatusInternalServerError, errors.New("boom"))

	property, err := newTestExtractor(fetcher).Extract(context.Background(), testDetailURL)
	require.NoError(t, err)
	require.Empty(t, property.Reviews.Reviews)
	require.Equal(t, 12, property.TotalReviews)
}

type promoteAllDetector struct{}

func (promoteAllDetector) ShouldPromote(scraper.FetchResponse) bool { return true }

func TestExtractPromotesToHeadless(t *testing.T) {
	static := newFakeFetcher()
	static.serve(testDetailURL, `<html><body>blocked</body></html>`)
	static.serve(testFeedURL, reviewFeedFixture)

	browser := newFakeFetcher()
	browser.serve(testDetailURL, detailPageFixture)

	ex := New(static, browser, promoteAllDetector{}, nil, Config{ReviewsFeedURL: testFeedURL}, zap.NewNop())
	property, err := ex.Extract(context.Background(), testDetailURL)
	require.NoError(t, err)
	require.Equal(t, "Acme Builders", property.Title)
	require.Len(t, browser.requests, 1)
}

func TestExtractHeadlessFailureKeepsOriginal(t *testing.T) {
	static := newFakeFetcher()
	static.serve(testDetailURL, detailPageFixture)
	static.serve(testFeedURL, reviewFeedFixture)

	browser := newFakeFetcher()
	browser.errs[testDetailURL] = errors.New("chrome crashed")

	ex := New(static, browser, promoteAllDetector{}, nil, Config{ReviewsFeedURL: testFeedURL}, zap.NewNop())
	property, err := ex.Extract(context.Background(), testDetailURL)
	require.NoError(t, err)
	require.Equal(t, "Acme Builders", property.Title)
}

type recordingBlobStore struct {
	mu    sync.Mutex
	paths []string
}

func (s *recordingBlobStore) PutObject(_ context.Context, path, _ string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	return "fake://" + path, nil
}

func TestExtractSnapshotsPage(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.serve(testDetailURL, detailPageFixture)
	fetcher.serve(testFeedURL, reviewFeedFixture)

	store := &recordingBlobStore{}
	ex := New(fetcher, nil, nil, store, Config{ReviewsFeedURL: testFeedURL, SnapshotPrefix: "pages"}, zap.NewNop())
	_, err := ex.Extract(context.Background(), testDetailURL)
	require.NoError(t, err)
	require.Len(t, store.paths, 1)
	require.Regexp(t, `^pages/[0-9a-f]{64}\.html$`, store.paths[0])
}
