// Package sink persists extracted records as newline-delimited JSON.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"houzz-pro-scraper/internal/scraper"
)

// JSONL appends one serialized Property per line to an append-only file.
// Writes are serialized so concurrent callers never interleave lines.
type JSONL struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	logger *zap.Logger
}

// NewJSONL opens (or creates) the results file for appending.
func NewJSONL(path string, logger *zap.Logger) (*JSONL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sink dir %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open results file %s: %w", path, err)
	}
	return &JSONL{
		file:   file,
		enc:    json.NewEncoder(file),
		logger: logger,
	}, nil
}

// Write appends one record. Encode terminates each record with a newline,
// which is exactly the jsonl framing.
func (s *JSONL) Write(ctx context.Context, property *scraper.Property) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sink write canceled: %w", err)
	}
	if property == nil {
		return fmt.Errorf("nil property")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(property); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// Close flushes and closes the results file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close results file: %w", err)
	}
	return nil
}
