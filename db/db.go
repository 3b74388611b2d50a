package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and makes sure the schema exists
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	if connStr == "" {
		return nil, errors.New("empty database connection string (set postgres.url or DATABASE_URL)")
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id SERIAL PRIMARY KEY,
			news_title TEXT NOT NULL DEFAULT '',
			news_paragraph TEXT NOT NULL DEFAULT '',
			featured_image_url TEXT NOT NULL DEFAULT '',
			facts_html TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scrape_runs table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS mars_facts (
			id SERIAL PRIMARY KEY,
			run_id INTEGER NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			parameter TEXT NOT NULL,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create mars_facts table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hemispheres (
			id SERIAL PRIMARY KEY,
			run_id INTEGER NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			img_url TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create hemispheres table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_scrape_runs_scraped_at ON scrape_runs(scraped_at)`,
		`CREATE INDEX IF NOT EXISTS idx_mars_facts_run_id ON mars_facts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hemispheres_run_id ON hemispheres(run_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			log.Warn("failed to create index", "stmt", stmt, "err", err)
		}
	}

	log.Debug("database schema initialized")
	return nil
}

// GetConn returns the underlying database connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}
