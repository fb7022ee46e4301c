package crawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"houzz-pro-scraper/internal/dispatch"
	"houzz-pro-scraper/internal/extract"
	"houzz-pro-scraper/internal/metrics"
	"houzz-pro-scraper/internal/scraper"
)

// Submitter is the dispatcher surface the runner drives.
type Submitter interface {
	Submit(ctx context.Context, url string) (*dispatch.Task, error)
	Handles() <-chan *dispatch.Task
	CloseSubmissions()
	WaitIdle()
}

// Stats summarizes one crawl run.
type Stats struct {
	PagesWalked int
	Submitted   int
	Persisted   int
	Failed      int
}

// Config controls the runner.
type Config struct {
	PageSize int
	// Topic is the publish destination for persisted records; empty
	// disables publishing.
	Topic string
}

// Runner walks listing pages, feeds discovered detail URLs to the
// dispatcher, and concurrently drains completed handles into the sink.
// Records and publisher are optional.
type Runner struct {
	fetcher    scraper.Fetcher
	dispatcher Submitter
	sink       scraper.ResultSink
	records    scraper.RecordStore
	publisher  scraper.Publisher
	clock      scraper.Clock
	cfg        Config
	logger     *zap.Logger
}

// NewRunner wires a crawl run.
func NewRunner(
	fetcher scraper.Fetcher,
	dispatcher Submitter,
	sink scraper.ResultSink,
	records scraper.RecordStore,
	publisher scraper.Publisher,
	clock scraper.Clock,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &Runner{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		sink:       sink,
		records:    records,
		publisher:  publisher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run crawls totalPages listing pages starting at startURL. The submission
// flow and drain flow run concurrently and meet at the dispatcher's handle
// channel; the run ends when every submitted task has been drained.
func (r *Runner) Run(ctx context.Context, startURL string, totalPages int) (Stats, error) {
	if totalPages <= 0 {
		return Stats{}, fmt.Errorf("total pages must be > 0, got %d", totalPages)
	}

	run := scraper.CrawlRun{
		ID:        uuid.NewString(),
		StartURL:  startURL,
		Pages:     totalPages,
		StartedAt: r.clock.Now(),
	}
	if r.records != nil {
		if err := r.records.CreateRun(ctx, run); err != nil {
			return Stats{}, fmt.Errorf("create run record: %w", err)
		}
	}
	r.logger.Info("crawl started",
		zap.String("run_id", run.ID),
		zap.String("start_url", startURL),
		zap.Int("pages", totalPages),
	)

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer r.dispatcher.CloseSubmissions()
		return r.submitPages(gctx, run, totalPages, &stats)
	})
	g.Go(func() error {
		return r.drain(gctx, run, &stats)
	})

	err := g.Wait()
	r.dispatcher.WaitIdle()
	r.logger.Info("crawl finished",
		zap.String("run_id", run.ID),
		zap.Int("submitted", stats.Submitted),
		zap.Int("persisted", stats.Persisted),
		zap.Int("failed", stats.Failed),
	)
	return stats, err
}

// submitPages is the submission flow: one listing fetch per page, one
// dispatcher submission per discovered URL. A failed listing page or a
// page without results contributes zero URLs and the walk continues.
func (r *Runner) submitPages(ctx context.Context, run scraper.CrawlRun, totalPages int, stats *Stats) error {
	page := ListingPage{BaseURL: run.StartURL, PageSize: r.cfg.PageSize}
	for i := 0; i < totalPages; i++ {
		urls, err := r.collectPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("listing page yielded nothing",
				zap.String("run_id", run.ID),
				zap.Int("page_index", page.Index),
				zap.Error(err),
			)
		}
		stats.PagesWalked++
		for _, u := range urls {
			if _, err := r.dispatcher.Submit(ctx, u); err != nil {
				return fmt.Errorf("submit %s: %w", u, err)
			}
			stats.Submitted++
		}
		page = page.Next()
	}
	return nil
}

func (r *Runner) collectPage(ctx context.Context, page ListingPage) ([]string, error) {
	pageURL, err := page.URL()
	if err != nil {
		return nil, err
	}
	resp, err := r.fetcher.Fetch(ctx, scraper.FetchRequest{URL: pageURL})
	if err != nil {
		return nil, err
	}
	doc, err := extract.NewDocument(resp.Body, resp.Headers.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}
	urls, err := ExtractDetailURLs(doc)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		r.logger.Debug("listing page has an empty result list", zap.String("url", pageURL))
	}
	return urls, nil
}

// drain is the consumption flow. Ranging over the handle channel gives a
// structural termination condition: the loop ends exactly when the
// submission flow has closed the channel and every handle was seen.
func (r *Runner) drain(ctx context.Context, run scraper.CrawlRun, stats *Stats) error {
	for task := range r.dispatcher.Handles() {
		property, err := task.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("drain interrupted: %w", ctx.Err())
			}
			stats.Failed++
			r.logger.Warn("extraction failed",
				zap.String("run_id", run.ID),
				zap.String("url", task.URL()),
				zap.Error(err),
			)
			r.recordOutcome(ctx, run, task, scraper.TaskStatusFailed, err)
			continue
		}
		if err := r.persist(ctx, run, task, property); err != nil {
			return err
		}
		stats.Persisted++
	}
	return nil
}

func (r *Runner) persist(ctx context.Context, run scraper.CrawlRun, task *dispatch.Task, property *scraper.Property) error {
	if err := r.sink.Write(ctx, property); err != nil {
		return fmt.Errorf("write result for %s: %w", task.URL(), err)
	}
	metrics.IncRecordsWritten()
	r.recordOutcome(ctx, run, task, scraper.TaskStatusSucceeded, nil)
	r.publish(ctx, run, task, property)
	r.logger.Info("record persisted",
		zap.String("run_id", run.ID),
		zap.String("url", task.URL()),
		zap.String("title", property.Title),
	)
	return nil
}

func (r *Runner) recordOutcome(ctx context.Context, run scraper.CrawlRun, task *dispatch.Task, status scraper.TaskStatus, taskErr error) {
	if r.records == nil {
		return
	}
	outcome := scraper.TaskOutcome{
		RunID:      run.ID,
		URL:        task.URL(),
		Status:     status,
		DurationMs: task.Duration().Milliseconds(),
		FinishedAt: r.clock.Now(),
	}
	if taskErr != nil {
		outcome.ErrorText = taskErr.Error()
	}
	if err := r.records.RecordOutcome(ctx, outcome); err != nil {
		r.logger.Error("record outcome failed", zap.String("url", task.URL()), zap.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, run scraper.CrawlRun, task *dispatch.Task, property *scraper.Property) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"run_id":        run.ID,
		"url":           task.URL(),
		"title":         property.Title,
		"category":      property.Category,
		"rating":        property.Rating,
		"total_reviews": property.TotalReviews,
		"timestamp":     r.clock.Now().UTC(),
	}
	if _, err := r.publisher.Publish(ctx, r.cfg.Topic, payload); err != nil {
		r.logger.Error("publish record event failed", zap.String("url", task.URL()), zap.Error(err))
	}
}

// IsNoResults reports whether err stems from a listing page without the
// expected result structure.
func IsNoResults(err error) bool {
	return errors.Is(err, ErrNoResults)
}
