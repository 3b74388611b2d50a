package models

import "time"

// NewsItem is the latest headline from the news page
type NewsItem struct {
	Title   string
	Summary string
}

// FeaturedImage is the gallery's featured image
type FeaturedImage struct {
	URL string // always absolute
}

// Fact is one row of the facts table
type Fact struct {
	Parameter string
	Value     string
}

// FactsTable holds the facts rows in page order plus their HTML rendering
type FactsTable struct {
	Rows []Fact
	HTML string // newlines stripped
}

// Hemisphere is one hemisphere title with its full resolution image
type Hemisphere struct {
	Title    string
	ImageURL string
}

// Results is everything collected during one run.
// Sections that failed are left at their zero value and listed in the Report.
type Results struct {
	News        NewsItem
	Image       FeaturedImage
	Facts       FactsTable
	Hemispheres []Hemisphere
	ScrapedAt   time.Time
}
