package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// FetchRequest captures everything needed to fetch a page.
type FetchRequest struct {
	URL     string
	Params  url.Values
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher fetches a URL and returns the body plus metadata. A failed fetch
// always surfaces as a FetchError, never as an empty response.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// BlockDetector decides whether a fetched body looks like a bot-block
// interstitial worth refetching through a real browser.
type BlockDetector interface {
	ShouldPromote(resp FetchResponse) bool
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes per-record completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RecordStore persists crawl runs and per-task outcomes.
type RecordStore interface {
	CreateRun(ctx context.Context, run CrawlRun) error
	RecordOutcome(ctx context.Context, outcome TaskOutcome) error
	Close()
}

// ResultSink appends one serialized Property per completed task.
type ResultSink interface {
	Write(ctx context.Context, property *Property) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
