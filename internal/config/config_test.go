package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 1.0, cfg.Crawler.RatePerSecond)
	require.Equal(t, 15, cfg.Crawler.PageSize)
	require.Equal(t, 120, cfg.Crawler.TaskTimeoutSeconds)
	require.Equal(t, 15, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, "https://www.houzz.com/j/ajax/profileReviewsAjax", cfg.Feed.URL)
	require.Equal(t, 1024, cfg.Feed.ItemsPerPage)
	require.Equal(t, "results.jsonl", cfg.Sink.Path)
	require.Equal(t, "local", cfg.Snapshots.Backend)
	require.Equal(t, "crawl_runs", cfg.DB.RunsTable)
	require.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
crawler:
  rate_per_second: 0.5
  page_size: 30
http:
  timeout_seconds: 30
sink:
  path: out/results.jsonl
metrics:
  enabled: true
  addr: ":9191"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.5, cfg.Crawler.RatePerSecond)
	require.Equal(t, 30, cfg.Crawler.PageSize)
	require.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, "out/results.jsonl", cfg.Sink.Path)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, ":9191", cfg.Metrics.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Crawler.RatePerSecond = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawler.PageSize = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Snapshots.Enabled = true
	cfg.Snapshots.Backend = "s3"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Snapshots.Enabled = true
	cfg.Snapshots.Backend = "gcs"
	cfg.Snapshots.Bucket = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.PubSub.TopicName = "records"
	cfg.PubSub.ProjectID = ""
	require.Error(t, cfg.Validate())
}
