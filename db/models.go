package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mars-scraper/models"

	"github.com/charmbracelet/log"
)

// ErrNoRuns is returned by LatestRun when nothing has been stored yet
var ErrNoRuns = errors.New("no stored runs")

// Run is a stored scrape run header
type Run struct {
	ID               int64
	NewsTitle        string
	NewsParagraph    string
	FeaturedImageURL string
	FactsHTML        string
	ScrapedAt        time.Time
	CreatedAt        time.Time
}

// Store implements store.Store
func (db *DB) Store(ctx context.Context, results *models.Results) error {
	id, err := db.SaveResults(ctx, results)
	if err != nil {
		return err
	}
	log.Info("saved run to database", "run_id", id, "facts", len(results.Facts.Rows), "hemispheres", len(results.Hemispheres))
	return nil
}

// SaveResults stores a run with its facts and hemispheres in one transaction
func (db *DB) SaveResults(ctx context.Context, results *models.Results) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO scrape_runs (news_title, news_paragraph, featured_image_url, facts_html, scraped_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, results.News.Title, results.News.Summary, results.Image.URL, results.Facts.HTML, results.ScrapedAt).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	for i, f := range results.Facts.Rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO mars_facts (run_id, position, parameter, value)
			VALUES ($1, $2, $3, $4)
		`, runID, i, f.Parameter, f.Value)
		if err != nil {
			return 0, fmt.Errorf("failed to insert fact %d: %w", i, err)
		}
	}

	for i, h := range results.Hemispheres {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO hemispheres (run_id, position, title, img_url)
			VALUES ($1, $2, $3, $4)
		`, runID, i, h.Title, h.ImageURL)
		if err != nil {
			return 0, fmt.Errorf("failed to insert hemisphere %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// LatestRun loads the most recently scraped run
func (db *DB) LatestRun(ctx context.Context) (*Run, *models.Results, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, news_title, news_paragraph, featured_image_url, facts_html, scraped_at, created_at
		FROM scrape_runs
		ORDER BY scraped_at DESC, id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.NewsTitle, &run.NewsParagraph, &run.FeaturedImageURL, &run.FactsHTML, &run.ScrapedAt, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNoRuns
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	results := &models.Results{
		News:      models.NewsItem{Title: run.NewsTitle, Summary: run.NewsParagraph},
		Image:     models.FeaturedImage{URL: run.FeaturedImageURL},
		Facts:     models.FactsTable{HTML: run.FactsHTML},
		ScrapedAt: run.ScrapedAt,
	}

	factRows, err := db.conn.QueryContext(ctx, `
		SELECT parameter, value FROM mars_facts WHERE run_id = $1 ORDER BY position
	`, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load facts: %w", err)
	}
	defer factRows.Close()
	for factRows.Next() {
		var f models.Fact
		if err := factRows.Scan(&f.Parameter, &f.Value); err != nil {
			return nil, nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		results.Facts.Rows = append(results.Facts.Rows, f)
	}
	if err := factRows.Err(); err != nil {
		return nil, nil, err
	}

	hemiRows, err := db.conn.QueryContext(ctx, `
		SELECT title, img_url FROM hemispheres WHERE run_id = $1 ORDER BY position
	`, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load hemispheres: %w", err)
	}
	defer hemiRows.Close()
	for hemiRows.Next() {
		var h models.Hemisphere
		if err := hemiRows.Scan(&h.Title, &h.ImageURL); err != nil {
			return nil, nil, fmt.Errorf("failed to scan hemisphere: %w", err)
		}
		results.Hemispheres = append(results.Hemispheres, h)
	}
	if err := hemiRows.Err(); err != nil {
		return nil, nil, err
	}

	return &run, results, nil
}
