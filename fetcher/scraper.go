package fetcher

import "context"

// Fetcher retrieves a page over plain HTTP, without a browser
type Fetcher interface {
	// Fetch returns the body of url
	Fetch(ctx context.Context, url string) (string, error)
}
