package extract

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"path"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"houzz-pro-scraper/internal/scraper"
)

// Stage names the extraction states a detail page moves through. A failed
// extraction reports the stage it died in.
type Stage string

// Extraction stages in execution order.
const (
	StageFetch    Stage = "fetch"
	StageHeader   Stage = "parse header"
	StageDetails  Stage = "parse details"
	StageReviews  Stage = "fetch reviews"
	StageValidate Stage = "validate"
)

// ExtractError is the terminal failure of one extraction, tagged with the
// stage that produced it.
type ExtractError struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Stage, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Config controls extractor behavior.
type Config struct {
	ReviewsFeedURL string
	ItemsPerPage   int
	SnapshotPrefix string
	ContentType    string
}

// Extractor turns one detail URL into a validated Property. It fetches the
// page, optionally re-fetches through a headless browser when the body
// looks bot-blocked, parses header/details/reviews, and assembles the
// record.
type Extractor struct {
	fetcher   scraper.Fetcher
	headless  scraper.Fetcher
	detector  scraper.BlockDetector
	snapshots scraper.BlobStore
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Extractor. Headless fetcher, detector, and snapshot
// store are optional.
func New(
	fetcher scraper.Fetcher,
	headless scraper.Fetcher,
	detector scraper.BlockDetector,
	snapshots scraper.BlobStore,
	cfg Config,
	logger *zap.Logger,
) *Extractor {
	if cfg.ReviewsFeedURL == "" {
		cfg.ReviewsFeedURL = "https://www.houzz.com/j/ajax/profileReviewsAjax"
	}
	if cfg.ItemsPerPage <= 0 {
		cfg.ItemsPerPage = 1024
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	return &Extractor{
		fetcher:   fetcher,
		headless:  headless,
		detector:  detector,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger,
	}
}

// extraction carries the per-page state between stages.
type extraction struct {
	url       string
	doc       *goquery.Document
	logo      string
	header    HeaderInfo
	headerErr error
	badges    Badges
	feedQuery *scraper.ReviewFeedQuery
	details   scraper.PropertyDetails
	scores    map[string]string
	cards     []scraper.ReviewCard
	property  *scraper.Property
}

// Extract runs the stage sequence for one detail URL. Each stage may fail
// the extraction; tolerable absences (missing header, missing reviews
// feed) degrade to empty sub-records instead.
func (e *Extractor) Extract(ctx context.Context, detailURL string) (*scraper.Property, error) {
	run := &extraction{url: detailURL}
	stages := []struct {
		stage Stage
		fn    func(context.Context, *extraction) error
	}{
		{StageFetch, e.fetchPage},
		{StageHeader, e.parseHeader},
		{StageDetails, e.parseDetails},
		{StageReviews, e.fetchReviews},
		{StageValidate, e.validate},
	}
	for _, s := range stages {
		if err := s.fn(ctx, run); err != nil {
			return nil, &ExtractError{Stage: s.stage, URL: detailURL, Err: err}
		}
	}
	return run.property, nil
}

func (e *Extractor) fetchPage(ctx context.Context, run *extraction) error {
	resp, err := e.fetcher.Fetch(ctx, scraper.FetchRequest{URL: run.url})
	if err != nil {
		return err
	}
	resp = e.maybePromote(ctx, run.url, resp)
	e.snapshot(ctx, resp)

	doc, err := NewDocument(resp.Body, resp.Headers.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	run.doc = doc
	return nil
}

// maybePromote re-fetches through the headless browser when the static
// body trips the block detector. A headless failure keeps the original
// response.
func (e *Extractor) maybePromote(ctx context.Context, url string, resp scraper.FetchResponse) scraper.FetchResponse {
	if e.headless == nil || e.detector == nil || !e.detector.ShouldPromote(resp) {
		return resp
	}
	promoted, err := e.headless.Fetch(ctx, scraper.FetchRequest{URL: url})
	if err != nil {
		e.logger.Warn("headless refetch failed", zap.String("url", url), zap.Error(err))
		return resp
	}
	e.logger.Info("headless refetch applied", zap.String("url", url))
	promoted.UsedHeadless = true
	return promoted
}

func (e *Extractor) snapshot(ctx context.Context, resp scraper.FetchResponse) {
	if e.snapshots == nil {
		return
	}
	name := path.Join(e.cfg.SnapshotPrefix, fmt.Sprintf("%x.html", sha256.Sum256([]byte(resp.URL))))
	uri, err := e.snapshots.PutObject(ctx, name, e.cfg.ContentType, bytes.NewReader(resp.Body))
	if err != nil {
		e.logger.Warn("snapshot failed", zap.String("url", resp.URL), zap.Error(err))
		return
	}
	e.logger.Debug("snapshot saved", zap.String("url", resp.URL), zap.String("blob_uri", uri))
}

// parseHeader reads logo, badge strings, and the identifier pair from the
// page header. An absent header is the least stable part of the source,
// so it degrades to null metadata rather than failing the extraction.
func (e *Extractor) parseHeader(_ context.Context, run *extraction) error {
	header := run.doc.Find("main header").First()
	if header.Length() == 0 {
		header = run.doc.Find("header").First()
	}
	if header.Length() == 0 {
		e.logger.Warn("detail page has no header", zap.String("url", run.url))
		return nil
	}

	infoBlocks := header.Children().First().Children()
	run.logo = infoBlocks.Eq(0).Find("img").First().AttrOr("src", "")
	run.badges = ClassifyBadges(strippedStrings(infoBlocks.Eq(1)))
	run.header, run.headerErr = DecodeRemainder(run.badges.Remainder)

	proID := header.Find(`div[data-container="Pro Actions"] button`).First().AttrOr("data-entity-id", "")
	userID := header.AttrOr("pro_user_id", "")
	if proID != "" && userID != "" {
		run.feedQuery = &scraper.ReviewFeedQuery{
			ProID:        proID,
			UserID:       userID,
			ItemsPerPage: e.cfg.ItemsPerPage,
		}
	} else {
		e.logger.Debug("header has no reviews-feed identifiers", zap.String("url", run.url))
	}
	return nil
}

// parseDetails reads the business-details rows: first cell is the field
// label, second cell the concatenated value.
func (e *Extractor) parseDetails(_ context.Context, run *extraction) error {
	section := run.doc.Find("section#business").First()
	if section.Length() == 0 {
		e.logger.Warn("detail page has no business section", zap.String("url", run.url))
		return nil
	}
	fields := map[string]string{}
	section.Children().Eq(1).Children().Each(func(_ int, row *goquery.Selection) {
		cells := row.Children()
		if cells.Length() < 2 {
			return
		}
		label := joinedText(cells.Eq(0))
		if label == "" {
			return
		}
		fields[label] = joinedText(cells.Eq(1))
	})
	details, err := scraper.NewPropertyDetails(fields)
	if err != nil {
		e.logger.Warn("dropping malformed detail field", zap.String("url", run.url), zap.Error(err))
	}
	run.details = details
	run.scores = e.parseAspectScores(run)
	return nil
}

func (e *Extractor) parseAspectScores(run *extraction) map[string]string {
	scores := map[string]string{}
	wrapper := run.doc.Find("section#reviews div.reviews-wrapper").First()
	if wrapper.Length() == 0 {
		return scores
	}
	wrapper.Find("div.aspect-review-summary").Each(func(_ int, summary *goquery.Selection) {
		children := summary.Children()
		if children.Length() < 3 {
			return
		}
		label := joinedText(children.Eq(0))
		if label != "" {
			scores[label] = joinedText(children.Eq(2))
		}
	})
	return scores
}

// fetchReviews pulls the paginated reviews feed using the identifier pair
// from the header. The feed is optional: a fetch or parse failure logs and
// yields an empty review sequence, but a single bad entry never drops the
// batch.
func (e *Extractor) fetchReviews(ctx context.Context, run *extraction) error {
	if run.feedQuery == nil {
		return nil
	}
	resp, err := e.fetcher.Fetch(ctx, scraper.FetchRequest{
		URL:    e.cfg.ReviewsFeedURL,
		Params: run.feedQuery.Values(),
	})
	if err != nil {
		e.logger.Warn("reviews feed fetch failed", zap.String("url", run.url), zap.Error(err))
		return nil
	}
	reviews, order, users, err := parseReviewFeed(resp.Body)
	if err != nil {
		e.logger.Warn("reviews feed unparseable", zap.String("url", run.url), zap.Error(err))
		return nil
	}
	run.cards = buildReviewCards(reviews, order, users, e.logger)
	return nil
}

func (e *Extractor) validate(_ context.Context, run *extraction) error {
	if run.headerErr != nil {
		return run.headerErr
	}
	if run.header.Title == "" {
		return errors.New("profile has no title")
	}
	property := &scraper.Property{
		Title:        run.header.Title,
		Category:     run.header.Category,
		CompanyLogo:  run.logo,
		Rating:       run.header.Rating,
		TotalReviews: run.badges.TotalReviews,
		Details:      run.details,
		Reviews:      scraper.NewPropertyReviews(run.scores, run.cards),
	}
	run.property = property
	return nil
}
