// Package dispatch submits one asynchronous extraction task per detail
// URL and hands completion handles to a single consumer.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"houzz-pro-scraper/internal/metrics"
	"houzz-pro-scraper/internal/scraper"
)

// Extractor runs the per-URL extraction pipeline.
type Extractor interface {
	Extract(ctx context.Context, detailURL string) (*scraper.Property, error)
}

// Task is the await handle for one submitted URL. Wait blocks until the
// extraction finishes or ctx ends; no polling is involved.
type Task struct {
	id       string
	url      string
	done     chan struct{}
	property *scraper.Property
	err      error
	duration time.Duration
}

// ID returns the task's identifier.
func (t *Task) ID() string { return t.id }

// URL returns the detail URL this task extracts.
func (t *Task) URL() string { return t.url }

// Wait blocks until the task resolves. The property and error are only
// valid after Wait returns without a context error.
func (t *Task) Wait(ctx context.Context) (*scraper.Property, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for task %s: %w", t.id, ctx.Err())
	case <-t.done:
		return t.property, t.err
	}
}

// Duration reports how long the extraction ran. Valid after Wait.
func (t *Task) Duration() time.Duration { return t.duration }

// Config controls Dispatcher behavior.
type Config struct {
	// RatePerSecond bounds outbound submission velocity, not completion.
	RatePerSecond float64
	Burst         int
	// TaskTimeout bounds one extraction including both network calls.
	TaskTimeout time.Duration
	// HandleBuffer sizes the FIFO handle channel between the submission
	// flow and the drain flow.
	HandleBuffer int
}

// Dispatcher rate-limits submissions and runs one goroutine per task.
// Handles flow to the consumer in submission order over a channel whose
// close is the structural "no more work is coming" sentinel.
type Dispatcher struct {
	cfg       Config
	limiter   *rate.Limiter
	extractor Extractor
	handles   chan *Task
	wg        sync.WaitGroup
	logger    *zap.Logger

	closeOnce sync.Once
}

// New creates a Dispatcher. The default rate is one submission per second,
// matching what the target site tolerates without throttling.
func New(cfg Config, extractor Extractor, logger *zap.Logger) *Dispatcher {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 2 * time.Minute
	}
	if cfg.HandleBuffer <= 0 {
		cfg.HandleBuffer = 1024
	}
	return &Dispatcher{
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		extractor: extractor,
		handles:   make(chan *Task, cfg.HandleBuffer),
		logger:    logger,
	}
}

// Submit enqueues one extraction task for url and returns its handle. It
// blocks on the global rate limiter, so a burst of discovered URLs drains
// out at the configured velocity. A slow task never blocks the next
// submission.
func (d *Dispatcher) Submit(ctx context.Context, url string) (*Task, error) {
	start := time.Now()
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}

	task := &Task{
		id:   uuid.NewString(),
		url:  url,
		done: make(chan struct{}),
	}
	select {
	case d.handles <- task:
	case <-ctx.Done():
		return nil, fmt.Errorf("submit %s: %w", url, ctx.Err())
	}

	d.wg.Add(1)
	go d.run(ctx, task)
	d.logger.Debug("task submitted", zap.String("task_id", task.id), zap.String("url", url))
	return task, nil
}

func (d *Dispatcher) run(ctx context.Context, task *Task) {
	defer d.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, d.cfg.TaskTimeout)
	defer cancel()

	start := time.Now()
	task.property, task.err = d.extractor.Extract(taskCtx, task.url)
	task.duration = time.Since(start)
	close(task.done)

	if task.err != nil {
		metrics.ObserveTask(string(scraper.TaskStatusFailed))
		return
	}
	metrics.ObserveTask(string(scraper.TaskStatusSucceeded))
}

// Handles returns the FIFO channel of task handles. It is closed by
// CloseSubmissions, so a drain loop that ranges over it terminates exactly
// after the last submitted handle, under any interleaving of submission
// and completion times.
func (d *Dispatcher) Handles() <-chan *Task {
	return d.handles
}

// CloseSubmissions signals that no more URLs will be submitted. Submit
// must not be called afterwards.
func (d *Dispatcher) CloseSubmissions() {
	d.closeOnce.Do(func() {
		close(d.handles)
	})
}

// WaitIdle blocks until every spawned task goroutine has finished. Used
// for orderly shutdown after the drain loop exits.
func (d *Dispatcher) WaitIdle() {
	d.wg.Wait()
}
