// Package store hands the results of a run to downstream persistence.
package store

import (
	"context"
	"errors"
	"fmt"

	"mars-scraper/models"

	"github.com/charmbracelet/log"
)

// Store persists the results of one run
type Store interface {
	Store(ctx context.Context, results *models.Results) error
}

// Multi stores results in every member, in order. A failing member does not
// stop the others; all errors are returned joined.
type Multi []Store

// Store implements the Store interface
func (m Multi) Store(ctx context.Context, results *models.Results) error {
	var errs []error
	for i, s := range m {
		if err := s.Store(ctx, results); err != nil {
			errs = append(errs, fmt.Errorf("store %d (%T): %w", i, s, err))
		}
	}
	return errors.Join(errs...)
}

// Log writes every collected value to a logger
type Log struct {
	logger *log.Logger
}

// NewLog creates a Log store; a nil logger uses the default one
func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default()
	}
	return &Log{logger: logger}
}

// Store implements the Store interface
func (l *Log) Store(_ context.Context, results *models.Results) error {
	l.logger.Info("news", "title", results.News.Title, "paragraph", results.News.Summary)
	l.logger.Info("featured image", "url", results.Image.URL)
	for _, f := range results.Facts.Rows {
		l.logger.Info("fact", "parameter", f.Parameter, "value", f.Value)
	}
	l.logger.Debug("facts table", "html", results.Facts.HTML)
	for _, h := range results.Hemispheres {
		l.logger.Info("hemisphere", "title", h.Title, "img_url", h.ImageURL)
	}
	return nil
}
