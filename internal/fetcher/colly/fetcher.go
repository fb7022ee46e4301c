// Package collyfetcher implements the page fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"houzz-pro-scraper/internal/metrics"
	"houzz-pro-scraper/internal/scraper"
)

// browserHeaders is the fixed header profile attached to every request.
// The directory serves different markup (or a block page) to clients that
// do not look like a browser tab issuing an XHR.
var browserHeaders = map[string]string{
	"Accept":             "*/*",
	"Accept-Encoding":    "gzip, deflate, br, zstd",
	"Accept-Language":    "en-US,en;q=0.9,ka;q=0.8",
	"Sec-Ch-Ua":          `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
	"Sec-Ch-Ua-Mobile":   "?0",
	"Sec-Ch-Ua-Platform": `"Linux"`,
	"Sec-Fetch-Dest":     "empty",
	"Sec-Fetch-Mode":     "cors",
	"Sec-Fetch-Site":     "same-origin",
	"User-Agent":         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"X-Requested-With":   "XMLHttpRequest",
}

// Config controls collector and retry behavior.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Fetcher implements scraper.Fetcher using a Colly collector. Transport
// failures come back as typed FetchErrors and transient classes are
// retried with jittered exponential backoff.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	backoff       *backoffPolicy
	logger        *zap.Logger
}

// New builds a Fetcher with a pooled transport.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		backoff:       newBackoffPolicy(cfg.BackoffInitial, cfg.BackoffMax),
		logger:        logger,
	}
}

// Fetch executes a GET with the browser header profile, retrying transient
// transport failures up to the configured bound.
func (f *Fetcher) Fetch(ctx context.Context, request scraper.FetchRequest) (scraper.FetchResponse, error) {
	target, err := buildURL(request)
	if err != nil {
		return scraper.FetchResponse{}, err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := f.fetchOnce(ctx, target, request.Headers)
		if err == nil {
			metrics.IncFetchOutcome(target, "ok")
			metrics.ObserveFetchDuration(target, resp.Duration)
			f.logger.Debug("fetched", zap.String("url", target), zap.Int("status", resp.StatusCode))
			return resp, nil
		}
		lastErr = err
		metrics.IncFetchOutcome(target, "error")
		if attempt >= f.cfg.MaxRetries || !scraper.RetryableFetch(err) {
			break
		}
		delay := f.backoff.delay(attempt)
		f.logger.Warn("retrying fetch",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return scraper.FetchResponse{}, scraper.ClassifyFetchError(target, 0, ctx.Err())
		case <-time.After(delay):
		}
	}
	return scraper.FetchResponse{}, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string, extra http.Header) (scraper.FetchResponse, error) {
	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		result   scraper.FetchResponse
		status   int
		fetchErr error
	)
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range browserHeaders {
			r.Headers.Set(key, value)
		}
		for key, values := range extra {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = scraper.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, target); err != nil {
		return scraper.FetchResponse{}, scraper.ClassifyFetchError(target, status, err)
	}
	if fetchErr != nil {
		return scraper.FetchResponse{}, scraper.ClassifyFetchError(target, status, fetchErr)
	}
	if len(result.Body) == 0 {
		return scraper.FetchResponse{}, &scraper.FetchError{
			Kind: scraper.FetchMalformed,
			URL:  target,
			Err:  fmt.Errorf("empty response body"),
		}
	}
	return result, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func buildURL(request scraper.FetchRequest) (string, error) {
	if len(request.Params) == 0 {
		return request.URL, nil
	}
	u, err := url.Parse(request.URL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", request.URL, err)
	}
	q := u.Query()
	for key, values := range request.Params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
