package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcspubsub "cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	systemclock "houzz-pro-scraper/internal/clock/system"
	"houzz-pro-scraper/internal/config"
	"houzz-pro-scraper/internal/crawl"
	"houzz-pro-scraper/internal/dispatch"
	"houzz-pro-scraper/internal/extract"
	collyfetcher "houzz-pro-scraper/internal/fetcher/colly"
	"houzz-pro-scraper/internal/fetcher/headless"
	"houzz-pro-scraper/internal/logging"
	"houzz-pro-scraper/internal/metrics"
	pubsubpublisher "houzz-pro-scraper/internal/publisher/pubsub"
	"houzz-pro-scraper/internal/scraper"
	"houzz-pro-scraper/internal/sink"
	"houzz-pro-scraper/internal/storage/gcs"
	"houzz-pro-scraper/internal/storage/local"
	"houzz-pro-scraper/internal/storage/postgres"
)

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	var (
		startURL string
		pages    int
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Walks the professional directory and extracts profiles",
		Long: `Walks the paginated directory starting at --url, submits every
discovered profile to a rate-limited extraction pipeline, and appends one
JSON record per profile to the output file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), startURL, pages, outPath)
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "listing page to start from (required)")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of listing pages to walk")
	cmd.Flags().StringVar(&outPath, "out", "", "results file (overrides sink.path)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func runCrawl(ctx context.Context, startURL string, pages int, outPath string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if outPath != "" {
		cfg.Sink.Path = outPath
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		FilePath:    cfg.Logging.FilePath,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()
	if cfg.Metrics.Enabled {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if serr := metrics.Serve(metricsCtx, cfg.Metrics.Addr, logger); serr != nil {
				logger.Warn("metrics listener stopped", zap.Error(serr))
			}
		}()
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		Timeout:        cfg.FetchTimeout(),
		MaxRetries:     cfg.HTTP.MaxRetries,
		BackoffInitial: time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:     time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
	}, logger)

	headlessFetcher, detector, err := buildHeadless(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := headlessFetcher.(interface{ Close() }); ok {
		defer closer.Close()
	}

	snapshots, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		return err
	}

	extractor := extract.New(fetcher, headlessFetcher, detector, snapshots, extract.Config{
		ReviewsFeedURL: cfg.Feed.URL,
		ItemsPerPage:   cfg.Feed.ItemsPerPage,
		SnapshotPrefix: cfg.Snapshots.Prefix,
	}, logger)

	dispatcher := dispatch.New(dispatch.Config{
		RatePerSecond: cfg.Crawler.RatePerSecond,
		Burst:         cfg.Crawler.Burst,
		TaskTimeout:   cfg.TaskTimeout(),
		HandleBuffer:  cfg.Crawler.HandleBuffer,
	}, extractor, logger)

	results, err := sink.NewJSONL(cfg.Sink.Path, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}
	defer func() {
		if cerr := results.Close(); cerr != nil {
			logger.Warn("failed to close results file", zap.Error(cerr))
		}
	}()

	records, err := buildRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	if records != nil {
		defer records.Close()
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}

	runner := crawl.NewRunner(
		fetcher,
		dispatcher,
		results,
		records,
		publisher,
		systemclock.New(),
		crawl.Config{PageSize: cfg.Crawler.PageSize, Topic: cfg.PubSub.TopicName},
		logger,
	)

	stats, err := runner.Run(ctx, startURL, pages)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("crawl finished",
		zap.Int("pages_walked", stats.PagesWalked),
		zap.Int("submitted", stats.Submitted),
		zap.Int("persisted", stats.Persisted),
		zap.Int("failed", stats.Failed),
	)
	return nil
}

func buildHeadless(cfg config.Config, logger *zap.Logger) (scraper.Fetcher, scraper.BlockDetector, error) {
	if !cfg.Headless.Enabled {
		return nil, nil, nil
	}
	fetcher, err := headless.NewChromedp(headless.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Warn("headless fetcher unavailable; continuing without it", zap.Error(err))
		return nil, nil, nil
	}
	return fetcher, headless.NewDetector(cfg.Headless.BodyThreshold), nil
}

func buildSnapshotStore(ctx context.Context, cfg config.Config) (scraper.BlobStore, error) {
	if !cfg.Snapshots.Enabled {
		return nil, nil
	}
	switch cfg.Snapshots.Backend {
	case "local":
		store, err := local.New(cfg.Snapshots.Dir)
		if err != nil {
			return nil, fmt.Errorf("init snapshot store: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, cfg.Snapshots.Bucket)
		if err != nil {
			return nil, fmt.Errorf("init snapshot store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshots.Backend)
	}
}

func buildRecordStore(ctx context.Context, cfg config.Config) (scraper.RecordStore, error) {
	if cfg.DB.DSN == "" {
		return nil, nil
	}
	store, err := postgres.NewRecordStore(ctx, postgres.Config{
		DSN:          cfg.DB.DSN,
		RunsTable:    cfg.DB.RunsTable,
		ResultsTable: cfg.DB.ResultsTable,
	})
	if err != nil {
		return nil, fmt.Errorf("init record store: %w", err)
	}
	return store, nil
}

func buildPublisher(ctx context.Context, cfg config.Config) (scraper.Publisher, error) {
	if cfg.PubSub.TopicName == "" {
		return nil, nil
	}
	client, err := gcspubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	return pubsubpublisher.New(client)
}
